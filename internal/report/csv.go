package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/numbers"
)

var csvHeader = []string{
	"Slide_Number",
	"Presentation_Text",
	"Status",
	"Presentation_Value",
	"Spreadsheet_Value",
	"Suggested_Fix",
	"Spreadsheet_File",
	"Spreadsheet_Sheet",
	"Spreadsheet_Cell",
	"Reasoning",
	"Context",
	"Confidence",
}

// WriteCSV writes one row per finding, in finding order. Absent values are empty.
func WriteCSV(w io.Writer, findings []models.AuditFinding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, f := range findings {
		record := []string{
			strconv.Itoa(f.Slide),
			f.RawText,
			string(f.Status),
			numbers.FormatValue(f.PresentationValue),
			optionalValue(f.MatchedValue),
			optionalString(f.SuggestedFix),
			optionalString(f.MatchedFile),
			optionalString(f.MatchedSheet),
			optionalString(f.MatchedCell),
			f.Reasoning,
			f.Context,
			strconv.FormatFloat(f.Confidence, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

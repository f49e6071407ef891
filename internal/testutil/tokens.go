package testutil

import "github.com/deck-auditor/backend/internal/models"

// PresentationToken builds a presentation-side token on the given slide.
func PresentationToken(slide int, raw string, value float64, class models.Classification, context string) models.NumericToken {
	return models.NumericToken{
		RawText:        raw,
		Value:          value,
		Classification: class,
		Context:        context,
		Origin:         models.OriginPresentation,
		Slide:          slide,
	}
}

// SpreadsheetToken builds a numeric-cell token in file/sheet at cell.
func SpreadsheetToken(file, sheet, cell string, value float64, context string) models.NumericToken {
	return models.NumericToken{
		RawText:        "",
		Value:          value,
		Classification: models.ClassPlain,
		Context:        context,
		Origin:         models.OriginSpreadsheet,
		File:           file,
		Sheet:          sheet,
		CellRef:        cell,
	}
}

// Findings builds one finding per status, in the order given.
func Findings(statuses ...models.FindingStatus) []models.AuditFinding {
	out := make([]models.AuditFinding, len(statuses))
	for i, s := range statuses {
		out[i] = models.AuditFinding{
			Slide:             i + 1,
			RawText:           "₹1.5 Cr",
			Status:            s,
			PresentationValue: 15000000,
			Reasoning:         "test",
		}
	}
	return out
}

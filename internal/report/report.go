// Package report renders audit findings for download and terminal output.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deck-auditor/backend/internal/matcher"
	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/numbers"
)

// Format names a report encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatPDF     Format = "pdf"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatTable   Format = "table"
)

// ErrUnknownFormat is returned for unsupported report formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatPDF, FormatJSON, FormatMsgpack, FormatTable:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	case FormatMsgpack:
		return "application/msgpack"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName returns the attachment name for a report generated at t.
func (f Format) FileName(t time.Time) string {
	ext := string(f)
	if f == FormatTable {
		ext = "txt"
	}
	return fmt.Sprintf("audit_report_%s.%s", t.Format("20060102_150405"), ext)
}

// Write renders findings in the given format.
func Write(w io.Writer, format Format, findings []models.AuditFinding) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, findings)
	case FormatPDF:
		return WritePDF(w, findings, time.Now())
	case FormatJSON:
		return WriteJSON(w, findings)
	case FormatMsgpack:
		return WriteMsgpack(w, findings)
	case FormatTable:
		return WriteTable(w, findings)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func optionalValue(v *float64) string {
	if v == nil {
		return ""
	}
	return numbers.FormatValue(*v)
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// source renders the spreadsheet location of a finding as file/sheet!cell.
func source(f models.AuditFinding) string {
	if f.MatchedFile == nil {
		return ""
	}
	s := *f.MatchedFile + "/" + optionalString(f.MatchedSheet)
	if cell := optionalString(f.MatchedCell); cell != "" {
		s += "!" + cell
	}
	return s
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func summarize(findings []models.AuditFinding) models.AuditSummary {
	return matcher.Summarize(findings)
}

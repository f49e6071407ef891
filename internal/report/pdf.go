package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/numbers"
)

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{128, 128, 128}
	rowFill    = rgb{245, 245, 220}
	statusFill = map[models.FindingStatus]rgb{
		models.StatusMatch:       {144, 238, 144},
		models.StatusMismatch:    {240, 128, 128},
		models.StatusUntraceable: {255, 255, 224},
		models.StatusError:       {211, 211, 211},
	}
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Slide", 13},
	{"Presentation Text", 38},
	{"Status", 22},
	{"Deck Value", 22},
	{"Sheet Value", 22},
	{"Suggested Fix", 24},
	{"Sheet Source", 39},
}

const (
	pdfMargin    = 15.0
	pdfRowHeight = 7.0
	pdfTextLimit = 30
)

// WritePDF renders a summary followed by a status-coloured findings table.
func WritePDF(w io.Writer, findings []models.AuditFinding, generated time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle("Deck Audit Report", false)
	pdf.SetCreator("deck-auditor", false)
	pdf.SetCreationDate(generated)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfText(s)) }

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Deck Audit Report", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	sum := summarize(findings)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Summary:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	lines := []string{
		fmt.Sprintf("Total Numbers Analyzed: %d", sum.Total),
		fmt.Sprintf("Matches: %d (%.1f%%)", sum.Matches, percent(sum.Matches, sum.Total)),
		fmt.Sprintf("Mismatches: %d (%.1f%%)", sum.Mismatches, percent(sum.Mismatches, sum.Total)),
		fmt.Sprintf("Untraceable: %d (%.1f%%)", sum.Untraceable, percent(sum.Untraceable, sum.Total)),
	}
	if sum.Errors > 0 {
		lines = append(lines, fmt.Sprintf("Errors: %d (%.1f%%)", sum.Errors, percent(sum.Errors, sum.Total)))
	}
	lines = append(lines, "Report Generated: "+generated.Format("2006-01-02 15:04:05"))
	for _, line := range lines {
		pdf.CellFormat(0, 5.5, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	if len(findings) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Detailed Audit Results", "", 1, "L", false, 0, "")
		pdf.Ln(2)

		tableHeader(pdf)
		_, pageHeight := pdf.GetPageSize()
		for _, f := range findings {
			if pdf.GetY()+pdfRowHeight > pageHeight-pdfMargin {
				pdf.AddPage()
				tableHeader(pdf)
			}
			tableRow(pdf, f, text)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return pdf.Output(w)
}

func tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, pdfRowHeight+1, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 8)
}

func tableRow(pdf *fpdf.Fpdf, f models.AuditFinding, text func(string) string) {
	cells := []string{
		strconv.Itoa(f.Slide),
		truncate(f.RawText, pdfTextLimit),
		string(f.Status),
		numbers.FormatValue(f.PresentationValue),
		orNA(optionalValue(f.MatchedValue)),
		orNA(optionalString(f.SuggestedFix)),
		orNA(truncate(source(f), pdfTextLimit)),
	}

	for i, cell := range cells {
		fill := rowFill
		if i == 2 {
			if c, ok := statusFill[f.Status]; ok {
				fill = c
			}
		}
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.CellFormat(pdfColumns[i].width, pdfRowHeight, text(cell), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// pdfText rewrites symbols the core PDF fonts cannot encode.
func pdfText(s string) string {
	return strings.ReplaceAll(s, "₹", "Rs.")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

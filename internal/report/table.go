package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/numbers"
)

// WriteTable renders findings as a bordered terminal table followed by the
// summary line. Colours are only emitted when w is a terminal.
func WriteTable(w io.Writer, findings []models.AuditFinding) error {
	re := lipgloss.NewRenderer(w)
	header := re.NewStyle().Bold(true).Padding(0, 1)
	cell := re.NewStyle().Padding(0, 1)
	status := map[models.FindingStatus]lipgloss.Style{
		models.StatusMatch:       cell.Foreground(lipgloss.Color("46")),
		models.StatusMismatch:    cell.Foreground(lipgloss.Color("196")),
		models.StatusUntraceable: cell.Foreground(lipgloss.Color("226")),
		models.StatusError:       cell.Foreground(lipgloss.Color("245")),
	}

	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			strconv.Itoa(f.Slide),
			truncate(f.RawText, pdfTextLimit),
			string(f.Status),
			numbers.FormatValue(f.PresentationValue),
			optionalValue(f.MatchedValue),
			source(f),
			optionalString(f.SuggestedFix),
			strconv.FormatFloat(f.Confidence, 'f', 2, 64),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SLIDE", "TEXT", "STATUS", "DECK", "SHEET", "SOURCE", "FIX", "CONF").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 2 && row >= 0 && row < len(findings) {
				if s, ok := status[findings[row].Status]; ok {
					return s
				}
			}
			return cell
		})

	sum := summarize(findings)
	_, err := fmt.Fprintf(w, "%s\n%d numbers: %d match, %d mismatch, %d untraceable, %d error\n",
		t.Render(), sum.Total, sum.Matches, sum.Mismatches, sum.Untraceable, sum.Errors)
	return err
}

package parser

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/numbers"
)

// contextRadius is how many characters either side of a match are kept as
// presentation context.
const contextRadius = 50

// PresentationTokens mines every slide of p. Shapes come first in layout
// order, then table cells row by row. Slides without numbers are kept so the
// result has one entry per slide.
func PresentationTokens(p *models.Presentation) ([]models.SlideTokens, error) {
	if p == nil {
		return nil, ErrNilDocument
	}

	out := make([]models.SlideTokens, 0, len(p.Slides))
	for _, slide := range p.Slides {
		st := models.SlideTokens{Slide: slide.Number, Title: slide.Title}
		for _, text := range slide.Shapes {
			st.Tokens = append(st.Tokens, textTokens(text, slide.Number, nil)...)
		}
		for _, table := range slide.Tables {
			for r, row := range table.Rows {
				for c, text := range row {
					if strings.TrimSpace(text) == "" {
						continue
					}
					cell := &models.TableCell{Row: r + 1, Column: c + 1}
					st.Tokens = append(st.Tokens, textTokens(text, slide.Number, cell)...)
				}
			}
		}
		out = append(out, st)
	}
	return out, nil
}

func textTokens(text string, slide int, cell *models.TableCell) []models.NumericToken {
	matches := numbers.Extract(text)
	tokens := make([]models.NumericToken, 0, len(matches))
	for _, m := range matches {
		tok := m.Token
		tok.Context = contextWindow(text, m.Start, m.End)
		tok.Origin = models.OriginPresentation
		tok.Slide = slide
		if cell != nil {
			c := *cell
			tok.TableCell = &c
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// contextWindow returns text[start:end] widened by up to contextRadius runes
// on each side, trimmed.
func contextWindow(text string, start, end int) string {
	from := start
	for i := 0; i < contextRadius && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < contextRadius && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return strings.TrimSpace(text[from:to])
}

// SpreadsheetTokens mines every sheet of w in row-major cell order. Numeric
// cells yield their value; textual cells yield the first number in their text.
// Sheets without tokens are dropped.
func SpreadsheetTokens(w *models.Workbook) (models.WorkbookTokens, error) {
	if w == nil {
		return models.WorkbookTokens{}, ErrNilDocument
	}

	out := models.WorkbookTokens{File: w.FileName}
	pool := newStringPool()
	for i := range w.Sheets {
		sheet := &w.Sheets[i]

		var tokens []models.NumericToken
		for r, row := range sheet.Rows {
			for c, cell := range row {
				tok, ok := cellToken(cell)
				if !ok {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return models.WorkbookTokens{}, fmt.Errorf("sheet %s: %w", sheet.Name, err)
				}
				tok.Origin = models.OriginSpreadsheet
				tok.Context = pool.intern(headerContext(sheet, r, c))
				tok.File = w.FileName
				tok.Sheet = sheet.Name
				tok.CellRef = ref
				tok.Row = r + 1
				tok.Column = c + 1
				tokens = append(tokens, tok)
			}
		}

		if len(tokens) > 0 {
			out.Sheets = append(out.Sheets, models.SheetTokens{Sheet: sheet.Name, Tokens: tokens})
		}
	}
	return out, nil
}

func cellToken(cell models.Cell) (models.NumericToken, bool) {
	switch cell.Kind {
	case models.CellNumber:
		if !isFinite(cell.Number) {
			return models.NumericToken{}, false
		}
		return models.NumericToken{
			RawText:        numbers.FormatValue(cell.Number),
			Value:          cell.Number,
			Classification: models.ClassPlain,
		}, true
	case models.CellText:
		found := numbers.ExtractTokens(cell.Text)
		if len(found) == 0 {
			return models.NumericToken{}, false
		}
		tok := found[0]
		tok.CellText = cell.Text
		return tok, true
	default:
		return models.NumericToken{}, false
	}
}

// headerContext joins the textual cells to the left of and above (r, c).
func headerContext(sheet *models.Sheet, r, c int) string {
	var parts []string
	for _, n := range []models.Cell{sheet.At(r, c-1), sheet.At(r-1, c)} {
		if n.Kind != models.CellText {
			continue
		}
		if text := strings.TrimSpace(n.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " | ")
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

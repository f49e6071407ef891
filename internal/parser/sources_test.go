package parser

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deck-auditor/backend/internal/models"
)

func TestPresentationTokens(t *testing.T) {
	pres := &models.Presentation{
		Name: "deck.pptx",
		Slides: []models.Slide{
			{
				Number: 1,
				Title:  "Revenue grew to ₹1.5 Cr in FY24",
				Shapes: []string{"Revenue grew to ₹1.5 Cr in FY24", "Margin 12%"},
				Tables: []models.Table{{Rows: [][]string{
					{"Region", "Sales"},
					{"North", "₹2 Cr"},
				}}},
			},
			{Number: 2, Title: "Thank you", Shapes: []string{"Thank you"}},
		},
	}

	slides, err := PresentationTokens(pres)
	require.NoError(t, err)
	require.Len(t, slides, 2)

	first := slides[0]
	assert.Equal(t, 1, first.Slide)
	require.Len(t, first.Tokens, 4)

	t.Run("shape tokens in encounter order", func(t *testing.T) {
		tok := first.Tokens[0]
		assert.Equal(t, "₹1.5 Cr", tok.RawText)
		assert.Equal(t, 15000000.0, tok.Value)
		assert.Equal(t, models.ClassCurrency, tok.Classification)
		assert.Equal(t, models.OriginPresentation, tok.Origin)
		assert.Equal(t, "Revenue grew to ₹1.5 Cr in FY24", tok.Context)
		assert.Equal(t, 1, tok.Slide)
		assert.Nil(t, tok.TableCell)

		assert.Equal(t, "24", first.Tokens[1].RawText)
		assert.Equal(t, "12%", first.Tokens[2].RawText)
		assert.Equal(t, 12.0, first.Tokens[2].Value)
	})

	t.Run("table cells carry coordinates", func(t *testing.T) {
		tok := first.Tokens[3]
		assert.Equal(t, "₹2 Cr", tok.RawText)
		require.NotNil(t, tok.TableCell)
		assert.Equal(t, models.TableCell{Row: 2, Column: 2}, *tok.TableCell)
	})

	t.Run("slides without numbers are kept", func(t *testing.T) {
		assert.Equal(t, 2, slides[1].Slide)
		assert.Empty(t, slides[1].Tokens)
	})
}

func TestPresentationTokens_Nil(t *testing.T) {
	_, err := PresentationTokens(nil)
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestContextWindow(t *testing.T) {
	t.Run("clips to fifty characters each side", func(t *testing.T) {
		text := strings.Repeat("a", 60) + " 42 " + strings.Repeat("b", 60)
		ms := tokensOf(text)
		require.Len(t, ms, 1)
		want := strings.Repeat("a", 49) + " 42 " + strings.Repeat("b", 49)
		assert.Equal(t, want, ms[0].Context)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 55) + "7" + strings.Repeat("é", 55)
		ms := tokensOf(text)
		require.Len(t, ms, 1)
		assert.Equal(t, strings.Repeat("é", 50)+"7"+strings.Repeat("é", 50), ms[0].Context)
	})

	t.Run("short text is returned trimmed", func(t *testing.T) {
		ms := tokensOf("   Headcount 120   ")
		require.Len(t, ms, 1)
		assert.Equal(t, "Headcount 120", ms[0].Context)
	})
}

func tokensOf(text string) []models.NumericToken {
	return textTokens(text, 1, nil)
}

func TestSpreadsheetTokens(t *testing.T) {
	wb := &models.Workbook{
		FileName: "fin.xlsx",
		Sheets: []models.Sheet{
			{
				Name: "P&L",
				Rows: [][]models.Cell{
					{models.TextCell("Metric"), models.TextCell("FY24")},
					{models.TextCell("Revenue"), models.NumberCell(15250000)},
					{models.TextCell("Stores"), models.TextCell("approx 3,400 outlets and 12 more")},
					{{}, models.NumberCell(0)},
					{{}, models.NumberCell(math.Inf(1))},
				},
			},
			{
				Name: "Notes",
				Rows: [][]models.Cell{{models.TextCell("no numbers here")}},
			},
		},
	}

	book, err := SpreadsheetTokens(wb)
	require.NoError(t, err)
	assert.Equal(t, "fin.xlsx", book.File)
	require.Len(t, book.Sheets, 1, "sheets without tokens are dropped")
	assert.Equal(t, "P&L", book.Sheets[0].Sheet)

	toks := book.Sheets[0].Tokens
	require.Len(t, toks, 4)

	t.Run("textual header cell", func(t *testing.T) {
		tok := toks[0]
		assert.Equal(t, "B1", tok.CellRef)
		assert.Equal(t, 24.0, tok.Value)
		assert.Equal(t, "Metric", tok.Context)
		assert.Equal(t, "FY24", tok.CellText)
	})

	t.Run("numeric cell with left and above headers", func(t *testing.T) {
		tok := toks[1]
		assert.Equal(t, "B2", tok.CellRef)
		assert.Equal(t, 2, tok.Row)
		assert.Equal(t, 2, tok.Column)
		assert.Equal(t, 15250000.0, tok.Value)
		assert.Equal(t, models.ClassPlain, tok.Classification)
		assert.Equal(t, "Revenue | FY24", tok.Context)
		assert.Equal(t, "", tok.CellText)
		assert.Equal(t, "fin.xlsx", tok.File)
		assert.Equal(t, "P&L", tok.Sheet)
		assert.Equal(t, models.OriginSpreadsheet, tok.Origin)
	})

	t.Run("textual cell keeps only the first number", func(t *testing.T) {
		tok := toks[2]
		assert.Equal(t, "B3", tok.CellRef)
		assert.Equal(t, 3400.0, tok.Value)
		assert.Equal(t, "Stores", tok.Context, "numeric neighbor above is not a header")
	})

	t.Run("zero cells are kept", func(t *testing.T) {
		tok := toks[3]
		assert.Equal(t, "B4", tok.CellRef)
		assert.Equal(t, 0.0, tok.Value)
		assert.Equal(t, "approx 3,400 outlets and 12 more", tok.Context)
	})
}

func TestSpreadsheetTokens_Nil(t *testing.T) {
	_, err := SpreadsheetTokens(nil)
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestSpreadsheetTokens_NoNumbers(t *testing.T) {
	book, err := SpreadsheetTokens(&models.Workbook{
		FileName: "empty.csv",
		Sheets:   []models.Sheet{{Name: "empty"}},
	})
	require.NoError(t, err)
	assert.Empty(t, book.Sheets)
	assert.Empty(t, models.FlattenWorkbooks([]models.WorkbookTokens{book}))
}

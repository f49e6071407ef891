package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deck-auditor/backend/internal/models"
)

func TestXLSReader_ReadWorkbook(t *testing.T) {
	path := filepath.Join("testdata", "Table.xls")

	wb, err := NewXLSReader().ReadWorkbook(path, "Table.xls")
	require.NoError(t, err)
	assert.Equal(t, "Table.xls", wb.FileName)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "Table", sheet.Name)
	require.Len(t, sheet.Rows, 12)
	assert.Equal(t, models.TextCell("Code"), sheet.At(0, 0))
	assert.Equal(t, models.TextCell("Name"), sheet.At(0, 1))
	assert.Equal(t, models.TextCell("Description"), sheet.At(0, 2))
	assert.Equal(t, models.TextCell("code1"), sheet.At(1, 0))
	assert.Equal(t, models.TextCell("description11"), sheet.At(11, 2))
}

func TestXLSReader_ThroughRegistry(t *testing.T) {
	wb, err := GetGlobalRegistry().ReadWorkbook(filepath.Join("testdata", "Table.xls"), "Table.xls")
	require.NoError(t, err)

	tokens, err := SpreadsheetTokens(wb)
	require.NoError(t, err)
	assert.Equal(t, "Table.xls", tokens.File)
	for _, sheet := range tokens.Sheets {
		for _, tok := range sheet.Tokens {
			assert.Equal(t, "Table", tok.Sheet)
			assert.Equal(t, models.OriginSpreadsheet, tok.Origin)
		}
	}
}

func TestXLSReader_Rejects(t *testing.T) {
	dir := t.TempDir()

	t.Run("not a compound file", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.xls")
		require.NoError(t, os.WriteFile(path, []byte("definitely not biff"), 0o644))

		_, err := NewXLSReader().ReadWorkbook(path, "garbage.xls")
		assert.Error(t, err)
	})

	t.Run("truncated header", func(t *testing.T) {
		path := filepath.Join(dir, "short.xls")
		require.NoError(t, os.WriteFile(path, []byte{0xD0, 0xCF, 0x11, 0xE0}, 0o644))

		_, err := NewXLSReader().ReadWorkbook(path, "short.xls")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewXLSReader().ReadWorkbook(filepath.Join(dir, "none.xls"), "none.xls")
		assert.Error(t, err)
	})
}

func TestXLSCell(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Cell
	}{
		{raw: "15250000", want: models.NumberCell(15250000)},
		{raw: "12.5", want: models.NumberCell(12.5)},
		{raw: "Revenue", want: models.TextCell("Revenue")},
		{raw: "2024.03", want: models.NumberCell(2024.03)},
		{raw: "2024-03-31T00:00:00Z", want: models.TextCell("2024-03-31T00:00:00Z")},
		{raw: "FormulaCol", want: models.Cell{}},
		{raw: "   ", want: models.Cell{}},
		{raw: "NaN", want: models.TextCell("NaN")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, xlsCell(tt.raw))
		})
	}
}

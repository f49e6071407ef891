package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/extrame/xls"

	"github.com/deck-auditor/backend/internal/models"
)

var errNoWorkbookStream = errors.New("no Workbook stream in compound file")

// XLSReader reads legacy BIFF8 workbooks through extrame/xls. Numbers come
// from NUMBER and RK records; date-formatted cells and formulas are read as
// text and never produce spreadsheet numbers.
type XLSReader struct {
	charset string
}

func NewXLSReader() *XLSReader {
	return &XLSReader{charset: "utf-8"}
}

func (r *XLSReader) Name() string {
	return "xls"
}

func (r *XLSReader) CanRead(fileName string) bool {
	return hasExtension(fileName, ".xls")
}

// ReadWorkbook loads every sheet. Sheets are decoded lazily from the open
// file, so it stays open until the last one is read.
func (r *XLSReader) ReadWorkbook(filePath, fileName string) (wb *models.Workbook, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	defer func() {
		if rec := recover(); rec != nil {
			wb, err = nil, fmt.Errorf("decoding workbook: %v", rec)
		}
	}()

	book, err := xls.OpenReader(f, r.charset)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("opening workbook: %w", errNoWorkbookStream)
	}

	wb = &models.Workbook{FileName: fileName}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := models.Sheet{Name: ws.Name}
		if ws.MaxRow > 0 || xlsRow(ws, 0) != nil {
			sheet.Rows = make([][]models.Cell, int(ws.MaxRow)+1)
			for ri := 0; ri <= int(ws.MaxRow); ri++ {
				sheet.Rows[ri] = xlsCells(xlsRow(ws, ri))
			}
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// xlsRow returns nil for rows the sheet never wrote.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func xlsCells(row *xls.Row) []models.Cell {
	if row == nil || row.LastCol() <= 0 {
		return nil
	}
	cells := make([]models.Cell, row.LastCol())
	for ci := row.FirstCol(); ci < row.LastCol(); ci++ {
		cells[ci] = xlsCell(row.Col(ci))
	}
	return cells
}

func xlsCell(raw string) models.Cell {
	if strings.TrimSpace(raw) == "" || raw == "FormulaCol" {
		return models.Cell{}
	}
	if v, ok := parseFinite(raw); ok {
		return models.NumberCell(v)
	}
	return models.TextCell(raw)
}

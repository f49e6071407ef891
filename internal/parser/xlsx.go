package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/deck-auditor/backend/internal/models"
)

// XLSXReader reads OOXML workbooks through excelize.
type XLSXReader struct{}

func NewXLSXReader() *XLSXReader {
	return &XLSXReader{}
}

func (r *XLSXReader) Name() string {
	return "xlsx"
}

func (r *XLSXReader) CanRead(fileName string) bool {
	return hasExtension(fileName, ".xlsx", ".xlsm")
}

// ReadWorkbook loads every sheet with raw (unformatted) cell values. Formula
// cells contribute their cached result.
func (r *XLSXReader) ReadWorkbook(filePath, fileName string) (*models.Workbook, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	wb := &models.Workbook{FileName: fileName}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", name, err)
		}

		sheet := models.Sheet{Name: name, Rows: make([][]models.Cell, len(rows))}
		for ri, row := range rows {
			cells := make([]models.Cell, len(row))
			for ci, raw := range row {
				if strings.TrimSpace(raw) == "" {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(ci+1, ri+1)
				if err != nil {
					return nil, err
				}
				typ, err := f.GetCellType(name, ref)
				if err != nil {
					return nil, fmt.Errorf("reading %s!%s: %w", name, ref, err)
				}
				cells[ci] = xlsxCell(typ, raw)
			}
			sheet.Rows[ri] = cells
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func xlsxCell(typ excelize.CellType, raw string) models.Cell {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if v, ok := parseFinite(raw); ok {
			return models.NumberCell(v)
		}
		return models.TextCell(raw)
	case excelize.CellTypeBool:
		return models.Cell{}
	default:
		return models.TextCell(raw)
	}
}

func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

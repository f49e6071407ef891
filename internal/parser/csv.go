package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deck-auditor/backend/internal/models"
)

// CSVReader reads a comma-separated file as a one-sheet workbook named after
// the file stem.
type CSVReader struct{}

func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

func (r *CSVReader) Name() string {
	return "csv"
}

func (r *CSVReader) CanRead(fileName string) bool {
	return hasExtension(fileName, ".csv")
}

func (r *CSVReader) ReadWorkbook(filePath, fileName string) (*models.Workbook, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	sheet := models.Sheet{Name: stem(fileName)}
	for line := 0; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fileName, err)
		}
		if line == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}

		cells := make([]models.Cell, len(record))
		for i, field := range record {
			field = strings.TrimSpace(field)
			if v, ok := parseFinite(field); ok {
				cells[i] = models.NumberCell(v)
			} else {
				cells[i] = models.TextCell(field)
			}
		}
		sheet.Rows = append(sheet.Rows, cells)
	}

	return &models.Workbook{FileName: fileName, Sheets: []models.Sheet{sheet}}, nil
}

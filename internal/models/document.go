package models

// Presentation is a parsed slide deck.
type Presentation struct {
	Name   string  `json:"name"`
	Slides []Slide `json:"slides"`
}

// Slide holds the text-bearing elements of one slide.
// Shapes are in layout order; tables follow the shapes.
type Slide struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Shapes []string `json:"shapes"`
	Tables []Table  `json:"tables"`
}

// Table is a slide table in row-major order.
type Table struct {
	Rows [][]string `json:"rows"`
}

// CellKind tells how a spreadsheet cell stores its value.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is one spreadsheet cell.
type Cell struct {
	Kind   CellKind `json:"kind"`
	Number float64  `json:"number,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// NumberCell builds a numeric cell.
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }

// TextCell builds a textual cell. Blank text yields an empty cell.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// Sheet is a worksheet grid; Rows[r][c] is the cell at row r+1, column c+1.
type Sheet struct {
	Name string   `json:"name"`
	Rows [][]Cell `json:"rows"`
}

// At returns the cell at the 0-based position, or an empty cell when out of range.
func (s *Sheet) At(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Workbook is a parsed spreadsheet file.
type Workbook struct {
	FileName string  `json:"fileName"`
	Sheets   []Sheet `json:"sheets"`
}

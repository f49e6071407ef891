// Package models contains domain types for the Deck Auditor.
package models

// Classification describes the notation a numeric literal was written in.
type Classification string

const (
	ClassPlain      Classification = "plain"
	ClassCurrency   Classification = "currency"
	ClassPercentage Classification = "percentage"
	ClassMetric     Classification = "metric"
)

// Origin identifies which side of the audit a token came from.
type Origin string

const (
	OriginPresentation Origin = "presentation"
	OriginSpreadsheet  Origin = "spreadsheet"
)

// TableCell is a 1-based coordinate inside a slide table.
type TableCell struct {
	Row    int `json:"row" msgpack:"row"`
	Column int `json:"column" msgpack:"column"`
}

// NumericToken is a numeric value observed in a document.
// Tokens are created once per extraction pass and never mutated afterwards.
type NumericToken struct {
	RawText        string         `json:"rawText" msgpack:"rawText"`
	Value          float64        `json:"value" msgpack:"value"`
	Classification Classification `json:"classification" msgpack:"classification"`
	Context        string         `json:"context" msgpack:"context"`
	Origin         Origin         `json:"origin" msgpack:"origin"`

	// Presentation location
	Slide     int        `json:"slide,omitempty" msgpack:"slide,omitempty"`
	TableCell *TableCell `json:"tableCell,omitempty" msgpack:"tableCell,omitempty"`

	// Spreadsheet location
	File     string `json:"file,omitempty" msgpack:"file,omitempty"`
	Sheet    string `json:"sheet,omitempty" msgpack:"sheet,omitempty"`
	CellRef  string `json:"cell,omitempty" msgpack:"cell,omitempty"`
	Row      int    `json:"row,omitempty" msgpack:"row,omitempty"`
	Column   int    `json:"column,omitempty" msgpack:"column,omitempty"`
	CellText string `json:"cellText,omitempty" msgpack:"cellText,omitempty"` // set for textual cells only
}

// SlideTokens groups presentation tokens by slide, in encounter order.
type SlideTokens struct {
	Slide  int            `json:"slide"`
	Title  string         `json:"title"`
	Tokens []NumericToken `json:"tokens"`
}

// SheetTokens holds the tokens of one worksheet in row-major cell order.
type SheetTokens struct {
	Sheet  string         `json:"sheet"`
	Tokens []NumericToken `json:"tokens"`
}

// WorkbookTokens holds the sheets of one spreadsheet file that yielded tokens.
type WorkbookTokens struct {
	File   string        `json:"file"`
	Sheets []SheetTokens `json:"sheets"`
}

// FlattenSlides returns presentation tokens in slide order.
func FlattenSlides(slides []SlideTokens) []NumericToken {
	var out []NumericToken
	for _, s := range slides {
		out = append(out, s.Tokens...)
	}
	return out
}

// FlattenWorkbooks returns spreadsheet tokens in file, sheet, then cell order.
func FlattenWorkbooks(books []WorkbookTokens) []NumericToken {
	var out []NumericToken
	for _, b := range books {
		for _, s := range b.Sheets {
			out = append(out, s.Tokens...)
		}
	}
	return out
}

package models

// FindingStatus is the outcome of matching one presentation token.
type FindingStatus string

const (
	StatusMatch       FindingStatus = "Match"
	StatusMismatch    FindingStatus = "Mismatch"
	StatusUntraceable FindingStatus = "Untraceable"
	StatusError       FindingStatus = "Error"
)

// AuditFinding is the read-only record produced for each presentation token.
// Consumers must not recompute Status or Confidence.
type AuditFinding struct {
	Slide             int           `json:"slide" msgpack:"slide"`
	RawText           string        `json:"raw_text" msgpack:"raw_text"`
	Status            FindingStatus `json:"status" msgpack:"status"`
	PresentationValue float64       `json:"presentation_value" msgpack:"presentation_value"`
	MatchedValue      *float64      `json:"matched_value" msgpack:"matched_value"`
	SuggestedFix      *string       `json:"suggested_fix" msgpack:"suggested_fix"`
	MatchedFile       *string       `json:"matched_file" msgpack:"matched_file"`
	MatchedSheet      *string       `json:"matched_sheet" msgpack:"matched_sheet"`
	MatchedCell       *string       `json:"matched_cell" msgpack:"matched_cell"`
	Reasoning         string        `json:"reasoning" msgpack:"reasoning"`
	Context           string        `json:"context" msgpack:"context"`
	Confidence        float64       `json:"confidence" msgpack:"confidence"`

	Source  NumericToken  `json:"-" msgpack:"-"`
	Matched *NumericToken `json:"-" msgpack:"-"`
}

// AuditSummary counts findings per status.
type AuditSummary struct {
	Total       int `json:"total" msgpack:"total"`
	Matches     int `json:"matches" msgpack:"matches"`
	Mismatches  int `json:"mismatches" msgpack:"mismatches"`
	Untraceable int `json:"untraceable" msgpack:"untraceable"`
	Errors      int `json:"errors" msgpack:"errors"`
}

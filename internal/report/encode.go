package report

import (
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/deck-auditor/backend/internal/models"
)

// Document is the JSON and msgpack report body.
type Document struct {
	Summary  models.AuditSummary   `json:"summary" msgpack:"summary"`
	Findings []models.AuditFinding `json:"findings" msgpack:"findings"`
}

func newDocument(findings []models.AuditFinding) Document {
	if findings == nil {
		findings = []models.AuditFinding{}
	}
	return Document{Summary: summarize(findings), Findings: findings}
}

// WriteJSON writes the summary and findings as indented JSON.
func WriteJSON(w io.Writer, findings []models.AuditFinding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(findings))
}

// WriteMsgpack writes the summary and findings with msgpack, using the same
// field names as the JSON encoding.
func WriteMsgpack(w io.Writer, findings []models.AuditFinding) error {
	return msgpack.NewEncoder(w).Encode(newDocument(findings))
}

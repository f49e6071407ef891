package matcher

import "github.com/deck-auditor/backend/internal/models"

// Summarize counts findings per status.
func Summarize(findings []models.AuditFinding) models.AuditSummary {
	s := models.AuditSummary{Total: len(findings)}
	for _, f := range findings {
		switch f.Status {
		case models.StatusMatch:
			s.Matches++
		case models.StatusMismatch:
			s.Mismatches++
		case models.StatusUntraceable:
			s.Untraceable++
		case models.StatusError:
			s.Errors++
		}
	}
	return s
}

package models

import "time"

// SessionStatus represents the status of an audit session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusParsed   SessionStatus = "parsed"
	SessionStatusAuditing SessionStatus = "auditing"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusError    SessionStatus = "error"
)

// AuditSession represents one deck plus its companion spreadsheets.
type AuditSession struct {
	ID               string        `json:"id"`
	Status           SessionStatus `json:"status"`
	Presentation     *FileInfo     `json:"presentation,omitempty"`
	Spreadsheets     []*FileInfo   `json:"spreadsheets,omitempty"`
	SlideCount       int           `json:"slideCount"`
	SheetNames       []string      `json:"sheetNames,omitempty"` // "file/sheet"
	PresentationNums int           `json:"presentationNumbers"`
	SpreadsheetNums  int           `json:"spreadsheetNumbers"`
	RunID            string        `json:"runId,omitempty"`
	Summary          *AuditSummary `json:"summary,omitempty"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	Errors           []string      `json:"errors,omitempty"`
}

// NewAuditSession creates a new AuditSession in pending status.
func NewAuditSession(id string) *AuditSession {
	return &AuditSession{
		ID:        id,
		Status:    SessionStatusPending,
		CreatedAt: time.Now(),
		Errors:    make([]string, 0),
	}
}

// Package auditstore persists audit findings in DuckDB so they can be
// filtered and summarized after a run.
package auditstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"

	"github.com/deck-auditor/backend/internal/models"
)

// ErrRunNotFound is returned when a run id has no stored findings.
var ErrRunNotFound = errors.New("audit run not found")

const schema = `
	CREATE TABLE IF NOT EXISTS findings (
		run_id             VARCHAR NOT NULL,
		session_id         VARCHAR NOT NULL,
		seq                INTEGER NOT NULL,
		slide              INTEGER NOT NULL,
		raw_text           VARCHAR NOT NULL,
		status             VARCHAR NOT NULL,
		presentation_value DOUBLE NOT NULL,
		has_match          BOOLEAN NOT NULL,
		matched_value      DOUBLE NOT NULL,
		matched_file       VARCHAR NOT NULL,
		matched_sheet      VARCHAR NOT NULL,
		matched_cell       VARCHAR NOT NULL,
		suggested_fix      VARCHAR NOT NULL,
		reasoning          VARCHAR NOT NULL,
		context            VARCHAR NOT NULL,
		confidence         DOUBLE NOT NULL,
		created_at         TIMESTAMP NOT NULL
	)`

// FindingStore keeps findings of every audit run, one row per finding.
type FindingStore struct {
	db *sql.DB
	mu sync.Mutex // serializes appends
}

// Open opens (or creates) the findings database at dbPath. An empty path
// keeps the database in memory.
func Open(dbPath string) (*FindingStore, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create findings table: %w", err)
	}

	return &FindingStore{db: db}, nil
}

// SaveRun stores findings under a new run id, preserving their order.
func (s *FindingStore) SaveRun(ctx context.Context, sessionID string, findings []models.AuditFinding) (string, error) {
	runID := uuid.New().String()
	createdAt := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "findings")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, f := range findings {
			r := toRow(f)
			err := appender.AppendRow(
				runID,
				sessionID,
				int32(i),
				int32(f.Slide),
				f.RawText,
				string(f.Status),
				f.PresentationValue,
				r.hasMatch,
				r.matchedValue,
				r.matchedFile,
				r.matchedSheet,
				r.matchedCell,
				r.suggestedFix,
				f.Reasoning,
				f.Context,
				f.Confidence,
				createdAt,
			)
			if err != nil {
				return fmt.Errorf("failed to append finding %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	if err != nil {
		return "", fmt.Errorf("appender error: %w", err)
	}

	return runID, nil
}

// QueryFindings returns the findings of a run in their original order,
// optionally restricted to one status.
func (s *FindingStore) QueryFindings(ctx context.Context, runID string, status models.FindingStatus) ([]models.AuditFinding, error) {
	query := `
		SELECT slide, raw_text, status, presentation_value, has_match, matched_value,
		       matched_file, matched_sheet, matched_cell, suggested_fix, reasoning, context, confidence
		FROM findings
		WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	findings := make([]models.AuditFinding, 0)
	for rows.Next() {
		var (
			f      models.AuditFinding
			r      row
			status string
		)
		if err := rows.Scan(&f.Slide, &f.RawText, &status, &f.PresentationValue, &r.hasMatch, &r.matchedValue,
			&r.matchedFile, &r.matchedSheet, &r.matchedCell, &r.suggestedFix, &f.Reasoning, &f.Context, &f.Confidence); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		f.Status = models.FindingStatus(status)
		r.apply(&f)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// Summary counts the findings of a run per status.
func (s *FindingStore) Summary(ctx context.Context, runID string) (models.AuditSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM findings WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return models.AuditSummary{}, fmt.Errorf("summarizing run: %w", err)
	}
	defer rows.Close()

	var sum models.AuditSummary
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return models.AuditSummary{}, err
		}
		sum.Total += n
		switch models.FindingStatus(status) {
		case models.StatusMatch:
			sum.Matches = n
		case models.StatusMismatch:
			sum.Mismatches = n
		case models.StatusUntraceable:
			sum.Untraceable = n
		case models.StatusError:
			sum.Errors = n
		}
	}
	if err := rows.Err(); err != nil {
		return models.AuditSummary{}, err
	}
	if sum.Total == 0 {
		return sum, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return sum, nil
}

// DeleteSession removes every run stored for a session.
func (s *FindingStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM findings WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting findings: %w", err)
	}
	return nil
}

// DeleteRunsExcept removes the runs of a session other than keepRunID.
func (s *FindingStore) DeleteRunsExcept(ctx context.Context, sessionID, keepRunID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM findings WHERE session_id = ? AND run_id <> ?`, sessionID, keepRunID); err != nil {
		return fmt.Errorf("deleting superseded runs: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *FindingStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// row holds the nullable finding columns in their NOT NULL encoding.
type row struct {
	hasMatch     bool
	matchedValue float64
	matchedFile  string
	matchedSheet string
	matchedCell  string
	suggestedFix string
}

func toRow(f models.AuditFinding) row {
	var r row
	if f.MatchedValue != nil {
		r.hasMatch = true
		r.matchedValue = *f.MatchedValue
	}
	if f.MatchedFile != nil {
		r.matchedFile = *f.MatchedFile
	}
	if f.MatchedSheet != nil {
		r.matchedSheet = *f.MatchedSheet
	}
	if f.MatchedCell != nil {
		r.matchedCell = *f.MatchedCell
	}
	if f.SuggestedFix != nil {
		r.suggestedFix = *f.SuggestedFix
	}
	return r
}

func (r row) apply(f *models.AuditFinding) {
	if r.hasMatch {
		value, file, sheet, cell := r.matchedValue, r.matchedFile, r.matchedSheet, r.matchedCell
		f.MatchedValue = &value
		f.MatchedFile = &file
		f.MatchedSheet = &sheet
		f.MatchedCell = &cell
	}
	if r.suggestedFix != "" {
		fix := r.suggestedFix
		f.SuggestedFix = &fix
	}
}

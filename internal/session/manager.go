// Package session owns audit sessions: the parsed documents of one deck plus
// its spreadsheets and the findings of its latest audit run.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deck-auditor/backend/internal/matcher"
	"github.com/deck-auditor/backend/internal/metrics"
	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/parser"
	"github.com/deck-auditor/backend/internal/storage"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotReady is returned when a session is not in a state that allows the operation.
	ErrNotReady = errors.New("session not ready")
	// ErrInvalidDocument is returned when an uploaded file cannot be read.
	ErrInvalidDocument = errors.New("invalid document")
)

// DefaultMaxSessions limits concurrent sessions to prevent memory exhaustion
const DefaultMaxSessions = 20

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// FindingStore persists the findings of audit runs.
type FindingStore interface {
	SaveRun(ctx context.Context, sessionID string, findings []models.AuditFinding) (string, error)
	QueryFindings(ctx context.Context, runID string, status models.FindingStatus) ([]models.AuditFinding, error)
	Summary(ctx context.Context, runID string) (models.AuditSummary, error)
	DeleteRunsExcept(ctx context.Context, sessionID, keepRunID string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// Options configures a Manager.
type Options struct {
	MaxSessions int
	Matcher     matcher.Options
	// Findings persists audit runs; nil keeps findings in memory only.
	Findings FindingStore
	// Cache reuses tokens of previously parsed uploads; nil disables it.
	Cache *TokenCache
}

// Manager handles active audit sessions.
type Manager struct {
	sessions    map[string]*SessionState
	mu          sync.RWMutex
	registry    *parser.Registry
	store       storage.Store
	findings    FindingStore
	cache       *TokenCache
	engine      *matcher.Engine
	logger      *zap.Logger
	maxSessions int
}

// SessionState holds the session metadata, the extracted tokens and the
// findings of the latest run.
type SessionState struct {
	Session      *models.AuditSession
	Slides       []models.SlideTokens
	Workbooks    []models.WorkbookTokens
	Findings     []models.AuditFinding
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
}

// NewManager creates a session manager reading uploads from store.
func NewManager(store storage.Store, logger *zap.Logger, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*SessionState),
		registry:    parser.GetGlobalRegistry(),
		store:       store,
		findings:    opts.Findings,
		cache:       opts.Cache,
		engine:      matcher.New(opts.Matcher),
		logger:      logger,
		maxSessions: opts.MaxSessions,
	}
}

// Create parses an uploaded deck and its spreadsheets into a new session.
// Spreadsheets keep the order given, which is the order the engine searches them in.
func (m *Manager) Create(ctx context.Context, presentationID string, spreadsheetIDs []string) (*models.AuditSession, error) {
	if len(spreadsheetIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one spreadsheet is required", ErrInvalidDocument)
	}

	start := time.Now()
	sessionID := uuid.New().String()
	log := m.logger.With(zap.String("session_id", shortID(sessionID)))

	deck, err := m.store.Get(presentationID)
	if err != nil {
		return nil, err
	}
	slides, err := m.presentationTokens(deck)
	if err != nil {
		m.markFile(deck.ID, storage.StatusError)
		log.Warn("presentation rejected", zap.String("file", deck.Name), zap.Error(err))
		return nil, err
	}

	sheets := make([]*models.FileInfo, 0, len(spreadsheetIDs))
	books := make([]models.WorkbookTokens, 0, len(spreadsheetIDs))
	for _, id := range spreadsheetIDs {
		info, err := m.store.Get(id)
		if err != nil {
			return nil, err
		}
		book, err := m.workbookTokens(info)
		if err != nil {
			m.markFile(info.ID, storage.StatusError)
			log.Warn("spreadsheet rejected", zap.String("file", info.Name), zap.Error(err))
			return nil, err
		}
		sheets = append(sheets, info)
		books = append(books, book)
	}

	session := models.NewAuditSession(sessionID)
	session.Status = models.SessionStatusParsed
	session.Presentation = deck
	session.Spreadsheets = sheets
	session.SlideCount = len(slides)
	session.PresentationNums = len(models.FlattenSlides(slides))
	session.SpreadsheetNums = len(models.FlattenWorkbooks(books))
	for _, b := range books {
		for _, s := range b.Sheets {
			session.SheetNames = append(session.SheetNames, b.File+"/"+s.Sheet)
		}
	}

	m.markFile(deck.ID, storage.StatusParsed)
	for _, s := range sheets {
		m.markFile(s.ID, storage.StatusParsed)
	}
	metrics.ObserveTokens(session.PresentationNums, session.SpreadsheetNums)

	m.mu.Lock()
	evicted := m.evictLocked()
	m.sessions[sessionID] = &SessionState{
		Session:      session,
		Slides:       slides,
		Workbooks:    books,
		LastAccessed: time.Now(),
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	snapshot := *session
	m.mu.Unlock()

	m.dropFindings(evicted, "session evicted to stay under limit")

	log.Info("session created",
		zap.String("file", deck.Name),
		zap.Int("slides", session.SlideCount),
		zap.Int("presentation_tokens", session.PresentationNums),
		zap.Int("spreadsheet_tokens", session.SpreadsheetNums),
		zap.Duration("duration", time.Since(start)))

	return &snapshot, nil
}

func (m *Manager) presentationTokens(info *models.FileInfo) ([]models.SlideTokens, error) {
	var slides []models.SlideTokens
	if m.cache != nil && m.cache.Load(info.ID, &slides) {
		return slides, nil
	}

	path, err := m.store.GetFilePath(info.ID)
	if err != nil {
		return nil, err
	}
	deck, err := m.registry.ReadPresentation(path, info.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, info.Name, err)
	}
	slides, err = parser.PresentationTokens(deck)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, info.Name, err)
	}

	m.storeTokens(info.ID, slides)
	return slides, nil
}

func (m *Manager) workbookTokens(info *models.FileInfo) (models.WorkbookTokens, error) {
	var book models.WorkbookTokens
	if m.cache != nil && m.cache.Load(info.ID, &book) {
		return book, nil
	}

	path, err := m.store.GetFilePath(info.ID)
	if err != nil {
		return book, err
	}
	wb, err := m.registry.ReadWorkbook(path, info.Name)
	if err != nil {
		return book, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, info.Name, err)
	}
	book, err = parser.SpreadsheetTokens(wb)
	if err != nil {
		return book, fmt.Errorf("%w: %s: %w", ErrInvalidDocument, info.Name, err)
	}

	m.storeTokens(info.ID, book)
	return book, nil
}

func (m *Manager) storeTokens(fileID string, v any) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Store(fileID, v); err != nil {
		m.logger.Warn("failed to cache tokens", zap.String("file_id", shortID(fileID)), zap.Error(err))
	}
}

func (m *Manager) markFile(id, status string) {
	if err := m.store.SetStatus(id, status); err != nil {
		m.logger.Debug("failed to update file status", zap.String("file_id", shortID(id)), zap.Error(err))
	}
}

// Run audits a parsed session and returns its findings, one per presentation
// token in slide order. Running a completed session again replaces its
// findings once the new run is stored; a failed store keeps the previous run.
func (m *Manager) Run(ctx context.Context, id string) (*models.AuditSession, []models.AuditFinding, error) {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	prev := state.Session.Status
	if prev != models.SessionStatusParsed && prev != models.SessionStatusComplete {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: session is %s", ErrNotReady, prev)
	}
	state.Session.Status = models.SessionStatusAuditing
	state.LastAccessed = time.Now()
	presentation := models.FlattenSlides(state.Slides)
	spreadsheet := models.FlattenWorkbooks(state.Workbooks)
	m.mu.Unlock()

	log := m.logger.With(zap.String("session_id", shortID(id)))
	start := time.Now()

	findings := m.engine.Match(presentation, spreadsheet)
	summary := matcher.Summarize(findings)
	elapsed := time.Since(start)
	metrics.AuditDuration.Observe(elapsed.Seconds())
	metrics.ObserveSummary(summary)

	var runID string
	if m.findings != nil {
		var err error
		runID, err = m.findings.SaveRun(ctx, id, findings)
		if err != nil {
			m.mu.Lock()
			state.Session.Status = prev
			state.Session.Errors = append(state.Session.Errors, fmt.Sprintf("failed to store findings: %v", err))
			m.mu.Unlock()
			log.Error("failed to store findings", zap.Error(err))
			return nil, nil, fmt.Errorf("failed to store findings: %w", err)
		}
		if prev == models.SessionStatusComplete {
			if err := m.findings.DeleteRunsExcept(ctx, id, runID); err != nil {
				log.Warn("failed to drop previous run", zap.Error(err))
			}
		}
		if len(findings) > 0 {
			stored, err := m.findings.Summary(ctx, runID)
			if err != nil {
				log.Warn("failed to read stored summary", zap.String("run_id", shortID(runID)), zap.Error(err))
			} else {
				summary = stored
			}
		}
	}

	m.mu.Lock()
	state.Findings = findings
	state.Session.Status = models.SessionStatusComplete
	state.Session.RunID = runID
	state.Session.Summary = &summary
	state.Session.ProcessingTimeMs = elapsed.Milliseconds()
	snapshot := *state.Session
	m.mu.Unlock()

	log.Info("audit complete",
		zap.Int("tokens", len(presentation)),
		zap.Int("matches", summary.Matches),
		zap.Int("mismatches", summary.Mismatches),
		zap.Int("untraceable", summary.Untraceable),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", elapsed))

	return &snapshot, findings, nil
}

// GetSession returns a snapshot of a session by ID.
func (m *Manager) GetSession(id string) (*models.AuditSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	snapshot := *state.Session
	return &snapshot, true
}

// TouchSession updates the LastAccessed timestamp for a session.
// This should be called whenever a session is actively being used
// to prevent it from being cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// Findings returns the findings of the session's latest run. A non-empty
// status restricts the result to that status.
func (m *Manager) Findings(ctx context.Context, id string, status models.FindingStatus) ([]models.AuditFinding, error) {
	m.mu.RLock()
	state, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if state.Session.Status != models.SessionStatusComplete {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: session has not been audited", ErrNotReady)
	}
	findings := state.Findings
	runID := state.Session.RunID
	m.mu.RUnlock()

	if status == "" {
		return findings, nil
	}
	if m.findings != nil && runID != "" {
		return m.findings.QueryFindings(ctx, runID, status)
	}

	filtered := make([]models.AuditFinding, 0)
	for _, f := range findings {
		if f.Status == status {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// Tokens returns the tokens extracted for a session.
func (m *Manager) Tokens(id string) ([]models.SlideTokens, []models.WorkbookTokens, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return state.Slides, state.Workbooks, nil
}

// Delete drops a session and its stored findings.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if m.findings != nil {
		if err := m.findings.DeleteSession(ctx, id); err != nil {
			return err
		}
	}
	m.logger.Info("session deleted", zap.String("session_id", shortID(id)))
	return nil
}

// Count returns the number of sessions held.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictLocked removes the least recently used finished sessions when at
// capacity and returns their IDs. The caller holds m.mu.
func (m *Manager) evictLocked() []string {
	if len(m.sessions) < m.maxSessions {
		return nil
	}

	var candidates []string
	for id, state := range m.sessions {
		if state.Session.Status != models.SessionStatusAuditing {
			candidates = append(candidates, id)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return m.sessions[candidates[i]].LastAccessed.Before(m.sessions[candidates[j]].LastAccessed)
	})

	toFree := len(m.sessions) - m.maxSessions + 1
	if toFree > len(candidates) {
		toFree = len(candidates)
	}
	evicted := candidates[:toFree]
	for _, id := range evicted {
		delete(m.sessions, id)
	}
	return evicted
}

// CleanupOldSessions removes sessions idle for longer than maxAge,
// but keeps sessions that have been accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	m.mu.Lock()
	var expired []string
	for id, state := range m.sessions {
		if state.Session.Status == models.SessionStatusAuditing {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	m.dropFindings(expired, "cleaned up aged session")
	return len(expired)
}

func (m *Manager) dropFindings(ids []string, msg string) {
	for _, id := range ids {
		if m.findings != nil {
			if err := m.findings.DeleteSession(context.Background(), id); err != nil {
				m.logger.Warn("failed to delete findings", zap.String("session_id", shortID(id)), zap.Error(err))
			}
		}
		m.logger.Info(msg, zap.String("session_id", shortID(id)))
	}
}

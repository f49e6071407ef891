// handlers_audit.go - Audit session handlers
package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/parser"
	"github.com/deck-auditor/backend/internal/report"
	"github.com/deck-auditor/backend/internal/storage"
)

// AuditHandlerImpl implements the AuditHandler interface
type AuditHandlerImpl struct {
	store      storage.Store
	sessionMgr SessionManager
	registry   *parser.Registry
	logger     *zap.Logger
}

// NewAuditHandler creates a new audit handler instance
func NewAuditHandler(store storage.Store, sessionMgr SessionManager, logger *zap.Logger) AuditHandler {
	return &AuditHandlerImpl{
		store:      store,
		sessionMgr: sessionMgr,
		registry:   parser.GetGlobalRegistry(),
		logger:     logger,
	}
}

// createAuditRequest references uploads already held by the store.
type createAuditRequest struct {
	PresentationID string   `json:"presentation_id"`
	SpreadsheetIDs []string `json:"spreadsheet_ids"`
}

// HandleCreateAudit parses a deck and its spreadsheets into a new session.
// A multipart/form-data body uploads new files; a JSON body references
// existing uploads by ID, which reuses their cached tokens.
func (h *AuditHandlerImpl) HandleCreateAudit(c echo.Context) error {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return h.createFromUploads(c)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected multipart/form-data", err)
	}

	decks := form.File["presentation"]
	sheets := form.File["spreadsheets"]
	if len(decks) != 1 {
		return NewValidationError("presentation")
	}
	if len(sheets) == 0 {
		return NewValidationError("spreadsheets")
	}

	if _, err := h.registry.FindPresentationReader(decks[0].Filename); err != nil {
		return NewBadRequestError("unsupported presentation format", err)
	}
	for _, fh := range sheets {
		if _, err := h.registry.FindSpreadsheetReader(fh.Filename); err != nil {
			return NewBadRequestError("unsupported spreadsheet format", err)
		}
	}

	var saved []string
	for _, fh := range append([]*multipart.FileHeader{decks[0]}, sheets...) {
		info, err := h.save(fh)
		if err != nil {
			h.discard(saved)
			return err
		}
		saved = append(saved, info.ID)
	}

	sess, err := h.sessionMgr.Create(c.Request().Context(), saved[0], saved[1:])
	if err != nil {
		h.discard(saved)
		return mapError(err, "audit", "")
	}

	return c.JSON(http.StatusCreated, sess)
}

func (h *AuditHandlerImpl) createFromUploads(c echo.Context) error {
	var req createAuditRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.PresentationID == "" {
		return NewValidationError("presentation_id")
	}
	if len(req.SpreadsheetIDs) == 0 {
		return NewValidationError("spreadsheet_ids")
	}

	deck, err := h.store.Get(req.PresentationID)
	if err != nil {
		return mapError(err, "file", req.PresentationID)
	}
	if _, err := h.registry.FindPresentationReader(deck.Name); err != nil {
		return NewBadRequestError("unsupported presentation format", err)
	}
	for _, id := range req.SpreadsheetIDs {
		info, err := h.store.Get(id)
		if err != nil {
			return mapError(err, "file", id)
		}
		if _, err := h.registry.FindSpreadsheetReader(info.Name); err != nil {
			return NewBadRequestError("unsupported spreadsheet format", err)
		}
	}

	sess, err := h.sessionMgr.Create(c.Request().Context(), req.PresentationID, req.SpreadsheetIDs)
	if err != nil {
		return mapError(err, "audit", "")
	}
	return c.JSON(http.StatusCreated, sess)
}

// discard removes uploads stored for a request that failed.
func (h *AuditHandlerImpl) discard(ids []string) {
	for _, id := range ids {
		if err := h.store.Delete(id); err != nil {
			h.logger.Warn("failed to discard upload", zap.String("file_id", id), zap.Error(err))
		}
	}
}

func (h *AuditHandlerImpl) save(fh *multipart.FileHeader) (*models.FileInfo, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(fh.Filename, src)
	if err != nil {
		return nil, NewInternalError("failed to save file", err)
	}
	return info, nil
}

// HandleGetAudit returns session metadata
func (h *AuditHandlerImpl) HandleGetAudit(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("audit", id)
	}
	h.sessionMgr.TouchSession(id)
	return c.JSON(http.StatusOK, sess)
}

// HandleRunAudit matches the session's tokens and returns the findings
func (h *AuditHandlerImpl) HandleRunAudit(c echo.Context) error {
	id := c.Param("id")
	sess, findings, err := h.sessionMgr.Run(c.Request().Context(), id)
	if err != nil {
		return mapError(err, "audit", id)
	}

	return c.JSON(http.StatusOK, runAuditResponse{
		Session:  sess,
		Summary:  sess.Summary,
		Findings: findings,
	})
}

// HandleGetFindings returns the findings of the latest run, optionally
// restricted with ?status=Match|Mismatch|Untraceable|Error
func (h *AuditHandlerImpl) HandleGetFindings(c echo.Context) error {
	id := c.Param("id")
	findings, err := h.findings(c, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, findings)
}

// HandleGetFindingsMsgpack returns findings with their summary encoded as msgpack
func (h *AuditHandlerImpl) HandleGetFindingsMsgpack(c echo.Context) error {
	id := c.Param("id")
	findings, err := h.findings(c, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.WriteMsgpack(&buf, findings); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, report.FormatMsgpack.ContentType(), buf.Bytes())
}

func (h *AuditHandlerImpl) findings(c echo.Context, id string) ([]models.AuditFinding, error) {
	status, err := parseStatus(c.QueryParam("status"))
	if err != nil {
		return nil, err
	}

	findings, err := h.sessionMgr.Findings(c.Request().Context(), id, status)
	if err != nil {
		return nil, mapError(err, "audit", id)
	}
	h.sessionMgr.TouchSession(id)
	if findings == nil {
		findings = []models.AuditFinding{}
	}
	return findings, nil
}

// HandleGetTokens returns the numbers extracted from the session's documents
func (h *AuditHandlerImpl) HandleGetTokens(c echo.Context) error {
	id := c.Param("id")
	slides, books, err := h.sessionMgr.Tokens(id)
	if err != nil {
		return mapError(err, "audit", id)
	}
	return c.JSON(http.StatusOK, tokensResponse{Slides: slides, Workbooks: books})
}

// HandleGetReport renders the findings of the latest run as a downloadable file
func (h *AuditHandlerImpl) HandleGetReport(c echo.Context) error {
	id := c.Param("id")
	format, err := report.ParseFormat(c.Param("format"))
	if err != nil || format == report.FormatTable {
		return NewBadRequestError(fmt.Sprintf("unsupported report format: %s", c.Param("format")), nil)
	}

	findings, err := h.sessionMgr.Findings(c.Request().Context(), id, "")
	if err != nil {
		return mapError(err, "audit", id)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, findings); err != nil {
		h.logger.Error("failed to render report", zap.String("session_id", id), zap.String("format", string(format)), zap.Error(err))
		return NewInternalError("failed to render report", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", format.FileName(time.Now())))
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}

// HandleDeleteAudit drops a session and its stored findings
func (h *AuditHandlerImpl) HandleDeleteAudit(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessionMgr.Delete(c.Request().Context(), id); err != nil {
		return mapError(err, "audit", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type runAuditResponse struct {
	Session  *models.AuditSession  `json:"session"`
	Summary  *models.AuditSummary  `json:"summary"`
	Findings []models.AuditFinding `json:"findings"`
}

type tokensResponse struct {
	Slides    []models.SlideTokens    `json:"slides"`
	Workbooks []models.WorkbookTokens `json:"workbooks"`
}

// Helper functions

// parseStatus accepts a finding status in any letter case; empty means all.
func parseStatus(s string) (models.FindingStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range []models.FindingStatus{
		models.StatusMatch,
		models.StatusMismatch,
		models.StatusUntraceable,
		models.StatusError,
	} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", NewValidationError("status")
}

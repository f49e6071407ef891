// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/deck-auditor/backend/internal/models"
)

// AuditHandler handles audit session operations
type AuditHandler interface {
	HandleCreateAudit(c echo.Context) error
	HandleGetAudit(c echo.Context) error
	HandleRunAudit(c echo.Context) error
	HandleGetFindings(c echo.Context) error
	HandleGetFindingsMsgpack(c echo.Context) error
	HandleGetTokens(c echo.Context) error
	HandleGetReport(c echo.Context) error
	HandleDeleteAudit(c echo.Context) error
}

// FileHandler handles uploaded file operations
type FileHandler interface {
	HandleListFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create(ctx context.Context, presentationID string, spreadsheetIDs []string) (*models.AuditSession, error)
	Run(ctx context.Context, id string) (*models.AuditSession, []models.AuditFinding, error)
	GetSession(id string) (*models.AuditSession, bool)
	TouchSession(id string) bool
	Findings(ctx context.Context, id string, status models.FindingStatus) ([]models.AuditFinding, error)
	Tokens(id string) ([]models.SlideTokens, []models.WorkbookTokens, error)
	Delete(ctx context.Context, id string) error
}

// TokenInvalidator drops cached extraction results of a deleted upload.
type TokenInvalidator interface {
	Delete(fileID string) error
}

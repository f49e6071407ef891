// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/deck-auditor/backend/internal/config"
	"github.com/deck-auditor/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	TokenCache TokenInvalidator // optional
	Logger     *zap.Logger
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Files  FileHandler
	Audit  AuditHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Health: NewHealthHandler(deps.Version),
		Files:  NewFileHandler(deps.Store, deps.TokenCache),
		Audit:  NewAuditHandler(deps.Store, deps.SessionMgr, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Uploaded files
	apiGroup.GET("/files", handlers.Files.HandleListFiles)
	apiGroup.GET("/files/:id", handlers.Files.HandleGetFile)
	apiGroup.DELETE("/files/:id", handlers.Files.HandleDeleteFile)

	// Audit sessions
	auditGroup := apiGroup.Group("/audits")
	auditGroup.POST("", handlers.Audit.HandleCreateAudit)
	auditGroup.GET("/:id", handlers.Audit.HandleGetAudit)
	auditGroup.DELETE("/:id", handlers.Audit.HandleDeleteAudit)
	auditGroup.POST("/:id/run", handlers.Audit.HandleRunAudit)
	auditGroup.GET("/:id/tokens", handlers.Audit.HandleGetTokens)
	auditGroup.GET("/:id/findings", handlers.Audit.HandleGetFindings)
	auditGroup.GET("/:id/findings/msgpack", handlers.Audit.HandleGetFindingsMsgpack)
	auditGroup.GET("/:id/report/:format", handlers.Audit.HandleGetReport)

	// Prometheus exposition
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, logger *zap.Logger) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.RequestID())
	e.Use(Metrics())

	if cfg.Advanced.EnableRequestLogging {
		e.Use(RequestLogger(logger, func(path string) bool {
			return path == "/api/health" || path == "/metrics"
		}))
	}

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodPost && strings.HasPrefix(c.Path(), "/api/audits")
		},
		ErrorMessage: "Request timeout - audit took too long",
	}))

	// Compression middleware
	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

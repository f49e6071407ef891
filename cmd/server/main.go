package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/deck-auditor/backend/internal/api"
	"github.com/deck-auditor/backend/internal/auditstore"
	"github.com/deck-auditor/backend/internal/config"
	"github.com/deck-auditor/backend/internal/logging"
	"github.com/deck-auditor/backend/internal/session"
	"github.com/deck-auditor/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deck auditor server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to deckaudit.yaml (default: next to the executable)")
	flag.Parse()

	if *configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		*configPath = filepath.Join(filepath.Dir(exePath), "deckaudit.yaml")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	logger, err := logging.New(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	findings, err := auditstore.Open(cfg.Storage.FindingsDatabase)
	if err != nil {
		return fmt.Errorf("failed to open findings database: %w", err)
	}
	defer findings.Close()

	opts := session.Options{
		MaxSessions: cfg.Processing.MaxSessions,
		Matcher:     cfg.MatcherOptions(),
		Findings:    findings,
	}
	deps := &api.Dependencies{
		Store:   fileStore,
		Logger:  logger,
		Version: Version,
	}
	if dir := cfg.Storage.TokenCacheDirectory; dir != "" {
		cache, err := session.NewTokenCache(dir, logger)
		if err != nil {
			return fmt.Errorf("failed to open token cache: %w", err)
		}
		opts.Cache = cache
		deps.TokenCache = cache
	}

	sessionMgr := session.NewManager(fileStore, logger, opts)
	deps.SessionMgr = sessionMgr

	go cleanupLoop(ctx, cfg, sessionMgr, fileStore, opts.Cache, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e, cfg, logger)
	api.RegisterRoutes(e, api.NewHandlers(deps))

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("deck auditor server starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", *configPath),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("data_dir", cfg.GetDataDir()),
		zap.String("findings_db", cfg.Storage.FindingsDatabase),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- e.StartServer(s)
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

// cleanupLoop expires idle sessions and drops cached tokens whose upload is gone.
func cleanupLoop(ctx context.Context, cfg *config.AppConfig, sessions *session.Manager, store storage.Store, cache *session.TokenCache, logger *zap.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
	defer ticker.Stop()

	maxAge := time.Duration(cfg.Processing.SessionTimeoutMinutes) * time.Minute
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := sessions.CleanupOldSessions(maxAge)

			orphaned := 0
			if cache != nil {
				files, err := store.List(0)
				if err != nil {
					logger.Warn("failed to list uploads for cache cleanup", zap.Error(err))
					continue
				}
				ids := make([]string, 0, len(files))
				for _, f := range files {
					ids = append(ids, f.ID)
				}
				orphaned = cache.CleanupOrphaned(ids)
			}

			if expired > 0 || orphaned > 0 {
				logger.Info("cleanup finished", zap.Int("expired_sessions", expired), zap.Int("orphaned_cache_entries", orphaned))
			}
		}
	}
}

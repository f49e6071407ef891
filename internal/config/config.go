// Package config provides YAML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/deck-auditor/backend/internal/matcher"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Storage    StorageConfig    `koanf:"storage" yaml:"storage"`
	Processing ProcessingConfig `koanf:"processing" yaml:"processing"`
	Matching   MatchingConfig   `koanf:"matching" yaml:"matching"`
	Advanced   AdvancedConfig   `koanf:"advanced" yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `koanf:"port" yaml:"port"`
	BindAddress  string `koanf:"bind_address" yaml:"bind_address"`
	EnableCORS   bool   `koanf:"enable_cors" yaml:"enable_cors"`
	AllowOrigins string `koanf:"allow_origins" yaml:"allow_origins"`
	ReadTimeout  int    `koanf:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `koanf:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	IdleTimeout  int    `koanf:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	BodyLimit    string `koanf:"body_limit" yaml:"body_limit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `koanf:"data_directory" yaml:"data_directory"`
	UploadsDirectory string `koanf:"uploads_directory" yaml:"uploads_directory"`
	// FindingsDatabase is the DuckDB file for audit findings; empty keeps them in memory.
	FindingsDatabase string `koanf:"findings_database" yaml:"findings_database"`
	// TokenCacheDirectory keeps extracted tokens per uploaded file; empty disables the cache.
	TokenCacheDirectory string `koanf:"token_cache_directory" yaml:"token_cache_directory"`
}

// ProcessingConfig contains session settings
type ProcessingConfig struct {
	MaxSessions            int  `koanf:"max_sessions" yaml:"max_sessions"`
	SessionTimeoutMinutes  int  `koanf:"session_timeout_minutes" yaml:"session_timeout_minutes"`
	CleanupIntervalMinutes int  `koanf:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
	EnableCompression      bool `koanf:"enable_compression" yaml:"enable_compression"`
	CompressionLevel       int  `koanf:"compression_level" yaml:"compression_level"`
}

// MatchingConfig tunes the match engine
type MatchingConfig struct {
	Tolerance        float64 `koanf:"tolerance" yaml:"tolerance"`
	ContextThreshold int     `koanf:"context_threshold" yaml:"context_threshold"`
	ExactWeight      float64 `koanf:"exact_weight" yaml:"exact_weight"`
	Workers          int     `koanf:"workers" yaml:"workers"` // 0 = GOMAXPROCS
}

// AdvancedConfig contains logging options
type AdvancedConfig struct {
	LogLevel             string `koanf:"log_level" yaml:"log_level"`
	LogFormat            string `koanf:"log_format" yaml:"log_format"`
	EnableRequestLogging bool   `koanf:"enable_request_logging" yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "200M",
		},
		Storage: StorageConfig{
			DataDirectory:       "./data",
			UploadsDirectory:    "./data/uploads",
			FindingsDatabase:    "./data/findings.duckdb",
			TokenCacheDirectory: "./data/tokens",
		},
		Processing: ProcessingConfig{
			MaxSessions:            20,
			SessionTimeoutMinutes:  60,
			CleanupIntervalMinutes: 5,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Matching: MatchingConfig{
			Tolerance:        0.05,
			ContextThreshold: 60,
			ExactWeight:      0.7,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogFormat:            "json",
			EnableRequestLogging: true,
		},
	}
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Deck Auditor configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Matching.Tolerance <= 0 || c.Matching.Tolerance >= 1 {
		errs = append(errs, fmt.Errorf("matching.tolerance %v must be in (0, 1)", c.Matching.Tolerance))
	}
	if c.Matching.ContextThreshold < 0 || c.Matching.ContextThreshold > 100 {
		errs = append(errs, fmt.Errorf("matching.context_threshold %d must be in [0, 100]", c.Matching.ContextThreshold))
	}
	if c.Matching.ExactWeight <= 0 || c.Matching.ExactWeight > 1 {
		errs = append(errs, fmt.Errorf("matching.exact_weight %v must be in (0, 1]", c.Matching.ExactWeight))
	}
	if c.Matching.Workers < 0 {
		errs = append(errs, errors.New("matching.workers cannot be negative"))
	}
	if c.Processing.MaxSessions < 1 {
		errs = append(errs, errors.New("processing.max_sessions must be at least 1"))
	}
	if c.Processing.CleanupIntervalMinutes < 1 {
		errs = append(errs, errors.New("processing.cleanup_interval_minutes must be at least 1"))
	}
	if _, err := zapcore.ParseLevel(c.Advanced.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("advanced.log_level: %w", err))
	}
	return errors.Join(errs...)
}

// MatcherOptions converts the matching section into engine options.
func (c *AppConfig) MatcherOptions() matcher.Options {
	return matcher.Options{
		Tolerance:        c.Matching.Tolerance,
		ContextThreshold: c.Matching.ContextThreshold,
		ExactWeight:      c.Matching.ExactWeight,
		Workers:          c.Matching.Workers,
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.UploadsDirectory,
		&c.Storage.FindingsDatabase,
		&c.Storage.TokenCacheDirectory,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
	}
	if c.Storage.FindingsDatabase != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.FindingsDatabase))
	}
	if c.Storage.TokenCacheDirectory != "" {
		dirs = append(dirs, c.Storage.TokenCacheDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

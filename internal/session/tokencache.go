package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

const (
	cachePrefix = "tokens_"
	cacheSuffix = ".msgpack"
)

// TokenCache keeps the tokens extracted from an uploaded file on disk, keyed
// by file ID, so a file reused across audits is only parsed once.
type TokenCache struct {
	dir    string
	logger *zap.Logger
	mu     sync.RWMutex
	// known tracks which file IDs have a cache entry (fileID -> path)
	known map[string]string
}

// NewTokenCache creates a cache in dir and indexes the entries already there.
func NewTokenCache(dir string, logger *zap.Logger) (*TokenCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create token cache directory: %w", err)
	}

	c := &TokenCache{
		dir:    dir,
		logger: logger,
		known:  make(map[string]string),
	}
	c.scanExisting()
	return c, nil
}

// scanExisting indexes cache files left by a previous run.
func (c *TokenCache) scanExisting() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn("failed to scan token cache", zap.String("dir", c.dir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, cachePrefix) || !strings.HasSuffix(name, cacheSuffix) {
			continue
		}
		fileID := strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), cacheSuffix)
		c.known[fileID] = filepath.Join(c.dir, name)
	}

	c.logger.Debug("token cache scanned", zap.Int("entries", len(c.known)))
}

func (c *TokenCache) pathFor(fileID string) string {
	return filepath.Join(c.dir, cachePrefix+fileID+cacheSuffix)
}

// Load decodes the cached tokens of fileID into v. It reports false when the
// file has no usable entry.
func (c *TokenCache) Load(fileID string, v any) bool {
	c.mu.RLock()
	path, ok := c.known[fileID]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	data, err := os.ReadFile(path)
	if err == nil {
		err = msgpack.Unmarshal(data, v)
	}
	if err != nil {
		c.logger.Warn("dropping unreadable token cache entry", zap.String("file_id", shortID(fileID)), zap.Error(err))
		c.Delete(fileID)
		return false
	}
	return true
}

// Store writes the tokens of fileID, replacing any previous entry.
func (c *TokenCache) Store(fileID string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	path := c.pathFor(fileID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write token cache: %w", err)
	}

	c.mu.Lock()
	c.known[fileID] = path
	c.mu.Unlock()
	return nil
}

// Delete removes the entry for a file (call when the upload is deleted).
func (c *TokenCache) Delete(fileID string) error {
	c.mu.Lock()
	delete(c.known, fileID)
	c.mu.Unlock()

	if err := os.Remove(c.pathFor(fileID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token cache entry: %w", err)
	}
	return nil
}

// Len returns the number of cached files.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.known)
}

// CleanupOrphaned removes entries whose upload no longer exists.
// fileIDs should be the IDs currently held by file storage.
func (c *TokenCache) CleanupOrphaned(fileIDs []string) int {
	valid := make(map[string]bool, len(fileIDs))
	for _, id := range fileIDs {
		valid[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fileID, path := range c.known {
		if valid[fileID] {
			continue
		}
		os.Remove(path)
		delete(c.known, fileID)
		removed++
	}
	if removed > 0 {
		c.logger.Info("removed orphaned token cache entries", zap.Int("count", removed))
	}
	return removed
}

// handlers_files.go - Uploaded file handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/deck-auditor/backend/internal/storage"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store storage.Store
	cache TokenInvalidator
}

// NewFileHandler creates a new file handler instance. cache may be nil.
func NewFileHandler(store storage.Store, cache TokenInvalidator) FileHandler {
	return &FileHandlerImpl{
		store: store,
		cache: cache,
	}
}

// HandleListFiles returns uploaded files, newest first (?limit=, default 50)
func (h *FileHandlerImpl) HandleListFiles(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes a file and its cached tokens
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	if h.cache != nil {
		if err := h.cache.Delete(id); err != nil {
			return NewInternalError("failed to drop cached tokens", err)
		}
	}

	return c.NoContent(http.StatusNoContent)
}

// Package parser reads decks and spreadsheets and mines their numeric tokens.
package parser

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/deck-auditor/backend/internal/models"
)

var (
	// ErrUnsupportedFormat is returned when no reader handles a file.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNilDocument is returned when a token source is given no document.
	ErrNilDocument = errors.New("nil document")
)

// PresentationReader loads a slide deck.
type PresentationReader interface {
	// Name returns the unique name of the reader.
	Name() string
	// CanRead reports whether the reader handles files with this name.
	CanRead(fileName string) bool
	// ReadPresentation parses the file at path. fileName is the original
	// upload name, used for format detection and labelling.
	ReadPresentation(path, fileName string) (*models.Presentation, error)
}

// SpreadsheetReader loads a workbook.
type SpreadsheetReader interface {
	Name() string
	CanRead(fileName string) bool
	ReadWorkbook(path, fileName string) (*models.Workbook, error)
}

func extension(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

func stem(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

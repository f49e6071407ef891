package parser

import (
	"fmt"
	"strings"

	"github.com/deck-auditor/backend/internal/models"
)

// Registry holds all available readers and picks one by file name.
type Registry struct {
	presentations []PresentationReader
	spreadsheets  []SpreadsheetReader
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		presentations: []PresentationReader{
			NewPPTXReader(),
		},
		spreadsheets: []SpreadsheetReader{
			NewXLSXReader(),
			NewXLSReader(),
			NewCSVReader(),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// RegisterPresentation adds a deck reader to the registry.
func (r *Registry) RegisterPresentation(p PresentationReader) {
	r.presentations = append(r.presentations, p)
}

// RegisterSpreadsheet adds a workbook reader to the registry.
func (r *Registry) RegisterSpreadsheet(s SpreadsheetReader) {
	r.spreadsheets = append(r.spreadsheets, s)
}

// FindPresentationReader detects the reader for a deck file name.
func (r *Registry) FindPresentationReader(fileName string) (PresentationReader, error) {
	for _, p := range r.presentations {
		if p.CanRead(fileName) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
}

// FindSpreadsheetReader detects the reader for a workbook file name.
func (r *Registry) FindSpreadsheetReader(fileName string) (SpreadsheetReader, error) {
	for _, s := range r.spreadsheets {
		if s.CanRead(fileName) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
}

// ReaderNames lists the registered readers, decks first.
func (r *Registry) ReaderNames() []string {
	var names []string
	for _, p := range r.presentations {
		names = append(names, p.Name())
	}
	for _, s := range r.spreadsheets {
		names = append(names, s.Name())
	}
	return names
}

// ReadPresentation detects the format of fileName and parses the file at path.
func (r *Registry) ReadPresentation(path, fileName string) (*models.Presentation, error) {
	p, err := r.FindPresentationReader(fileName)
	if err != nil {
		return nil, err
	}
	return p.ReadPresentation(path, fileName)
}

// ReadWorkbook detects the format of fileName and parses the file at path.
func (r *Registry) ReadWorkbook(path, fileName string) (*models.Workbook, error) {
	s, err := r.FindSpreadsheetReader(fileName)
	if err != nil {
		return nil, err
	}
	return s.ReadWorkbook(path, fileName)
}

// IsPresentation reports whether fileName has a registered deck reader.
func (r *Registry) IsPresentation(fileName string) bool {
	_, err := r.FindPresentationReader(fileName)
	return err == nil
}

// IsSpreadsheet reports whether fileName has a registered workbook reader.
func (r *Registry) IsSpreadsheet(fileName string) bool {
	_, err := r.FindSpreadsheetReader(fileName)
	return err == nil
}

func hasExtension(fileName string, exts ...string) bool {
	ext := extension(fileName)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Package matcher pairs presentation numbers with spreadsheet figures.
package matcher

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/numbers"
	"github.com/deck-auditor/backend/internal/similarity"
)

// Confidence reported for each resolved status.
const (
	MatchConfidence    = 0.95
	MismatchConfidence = 0.80
)

// Options tunes the engine. The zero value of any field selects its default.
type Options struct {
	// Tolerance is the maximum relative difference for two values to match.
	Tolerance float64
	// ContextThreshold is the similarity a fallback candidate must exceed.
	ContextThreshold int
	// ExactWeight is the share of an exact-value candidate's score that does
	// not depend on context.
	ExactWeight float64
	// Workers bounds concurrent token evaluation. Defaults to GOMAXPROCS.
	Workers int
}

// DefaultOptions returns the stock matching parameters.
func DefaultOptions() Options {
	return Options{
		Tolerance:        0.05,
		ContextThreshold: 60,
		ExactWeight:      0.7,
		Workers:          runtime.GOMAXPROCS(0),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.ContextThreshold <= 0 {
		o.ContextThreshold = d.ContextThreshold
	}
	if o.ExactWeight <= 0 || o.ExactWeight > 1 {
		o.ExactWeight = d.ExactWeight
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

// Engine matches presentation tokens against spreadsheet tokens.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	opts  Options
	score func(a, b string) int
}

// New creates an engine with the given options.
func New(opts Options) *Engine {
	return &Engine{
		opts:  opts.withDefaults(),
		score: similarity.PartialRatio,
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// WithinTolerance reports whether a and b agree within the engine tolerance.
func (e *Engine) WithinTolerance(a, b float64) bool {
	return WithinTolerance(a, b, e.opts.Tolerance)
}

// WithinTolerance reports whether a and b differ by at most tol relative to the
// larger magnitude. Two zeros match; a zero never matches a non-zero value.
func WithinTolerance(a, b, tol float64) bool {
	if a == 0 && b == 0 {
		return true
	}
	if a == 0 || b == 0 {
		return false
	}
	diff := math.Abs(a-b) / math.Max(math.Abs(a), math.Abs(b))
	return diff <= tol
}

// candidate is a spreadsheet token with its comparison text pre-normalized.
type candidate struct {
	token   *models.NumericToken
	context string
}

// Match returns one finding per presentation token, in input order.
// Spreadsheet tokens are searched in the order given; on equal scores the
// earlier candidate wins.
func (e *Engine) Match(presentation, spreadsheet []models.NumericToken) []models.AuditFinding {
	candidates := make([]candidate, 0, len(spreadsheet))
	for i := range spreadsheet {
		tok := &spreadsheet[i]
		if !isFinite(tok.Value) {
			continue
		}
		candidates = append(candidates, candidate{
			token:   tok,
			context: similarity.Normalize(tok.Context + " " + tok.CellText),
		})
	}

	findings := make([]models.AuditFinding, len(presentation))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i := range presentation {
		i := i
		g.Go(func() error {
			findings[i] = e.matchOne(presentation[i], candidates)
			return nil
		})
	}
	_ = g.Wait()

	return findings
}

func (e *Engine) matchOne(tok models.NumericToken, candidates []candidate) (f models.AuditFinding) {
	defer func() {
		if r := recover(); r != nil {
			f = errorFinding(tok, fmt.Errorf("%v", r))
		}
	}()

	if !isFinite(tok.Value) {
		return errorFinding(tok, errors.New("non-finite presentation value"))
	}

	context := similarity.Normalize(tok.Context + " " + tok.RawText)

	var best *models.NumericToken
	bestScore := 0.0

	for _, c := range candidates {
		if !e.WithinTolerance(tok.Value, c.token.Value) {
			continue
		}
		sim := e.score(context, c.context)
		score := e.opts.ExactWeight + (1-e.opts.ExactWeight)*float64(sim)/100
		if score > bestScore {
			bestScore = score
			best = c.token
		}
	}

	if best == nil {
		for _, c := range candidates {
			sim := e.score(context, c.context)
			if sim <= e.opts.ContextThreshold {
				continue
			}
			score := float64(sim) / 100
			if score > bestScore {
				bestScore = score
				best = c.token
			}
		}
	}

	switch {
	case best == nil:
		return untraceableFinding(tok)
	case e.WithinTolerance(tok.Value, best.Value):
		return matchFinding(tok, best)
	default:
		return mismatchFinding(tok, best)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func baseFinding(tok models.NumericToken) models.AuditFinding {
	return models.AuditFinding{
		Slide:             tok.Slide,
		RawText:           tok.RawText,
		PresentationValue: tok.Value,
		Context:           tok.Context,
		Source:            tok,
	}
}

func withMatch(f models.AuditFinding, m *models.NumericToken) models.AuditFinding {
	value, file, sheet, cell := m.Value, m.File, m.Sheet, m.CellRef
	f.MatchedValue = &value
	f.MatchedFile = &file
	f.MatchedSheet = &sheet
	f.MatchedCell = &cell
	f.Matched = m
	return f
}

func matchFinding(tok models.NumericToken, m *models.NumericToken) models.AuditFinding {
	f := withMatch(baseFinding(tok), m)
	f.Status = models.StatusMatch
	f.Confidence = MatchConfidence
	f.Reasoning = fmt.Sprintf("Values match within tolerance. Presentation: %s, Spreadsheet: %s",
		numbers.FormatValue(tok.Value), numbers.FormatValue(m.Value))
	return f
}

func mismatchFinding(tok models.NumericToken, m *models.NumericToken) models.AuditFinding {
	f := withMatch(baseFinding(tok), m)
	fix := numbers.FormatSuggestion(m.Value, tok.Classification)
	f.Status = models.StatusMismatch
	f.Confidence = MismatchConfidence
	f.SuggestedFix = &fix
	f.Reasoning = fmt.Sprintf("Number mismatch detected. Presentation shows %s, but spreadsheet shows %s",
		numbers.FormatValue(tok.Value), numbers.FormatValue(m.Value))
	return f
}

func untraceableFinding(tok models.NumericToken) models.AuditFinding {
	f := baseFinding(tok)
	f.Status = models.StatusUntraceable
	f.Reasoning = "No matching data found in spreadsheets"
	return f
}

func errorFinding(tok models.NumericToken, err error) models.AuditFinding {
	f := baseFinding(tok)
	f.Status = models.StatusError
	f.Reasoning = fmt.Sprintf("Error during matching: %v", err)
	return f
}

// Package metrics provides Prometheus metrics for audits.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/deck-auditor/backend/internal/models"
)

var (
	// FindingsTotal counts findings produced by audits.
	// Labels: status (Match, Mismatch, Untraceable, Error)
	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckaudit",
			Name:      "findings_total",
			Help:      "Total number of audit findings by status",
		},
		[]string{"status"},
	)

	// AuditDuration tracks how long a match pass takes.
	AuditDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "deckaudit",
			Name:      "audit_duration_seconds",
			Help:      "Duration of audit match passes in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// TokensExtracted counts numeric tokens mined from uploaded documents.
	// Labels: origin (presentation, spreadsheet)
	TokensExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckaudit",
			Name:      "tokens_extracted_total",
			Help:      "Total number of numeric tokens extracted by origin",
		},
		[]string{"origin"},
	)

	// HTTPRequestsTotal counts API requests.
	// Labels: method, route (echo route pattern), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckaudit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency.
	// Labels: method, route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deckaudit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by method and route",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"method", "route"},
	)

	// ActiveSessions is the number of audit sessions held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "deckaudit",
			Name:      "active_sessions",
			Help:      "Number of audit sessions currently held",
		},
	)
)

// ObserveSummary adds one audit's per-status counts to FindingsTotal.
func ObserveSummary(s models.AuditSummary) {
	FindingsTotal.WithLabelValues(string(models.StatusMatch)).Add(float64(s.Matches))
	FindingsTotal.WithLabelValues(string(models.StatusMismatch)).Add(float64(s.Mismatches))
	FindingsTotal.WithLabelValues(string(models.StatusUntraceable)).Add(float64(s.Untraceable))
	FindingsTotal.WithLabelValues(string(models.StatusError)).Add(float64(s.Errors))
}

// ObserveTokens records how many tokens one upload produced on each side.
func ObserveTokens(presentation, spreadsheet int) {
	TokensExtracted.WithLabelValues(string(models.OriginPresentation)).Add(float64(presentation))
	TokensExtracted.WithLabelValues(string(models.OriginSpreadsheet)).Add(float64(spreadsheet))
}

// middleware_test.go - Tests for logging and metrics middleware
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/deck-auditor/backend/internal/logging"
	"github.com/deck-auditor/backend/internal/metrics"
)

func TestRequestLogger(t *testing.T) {
	logs := logging.NewTestLogger()

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(RequestLogger(logs.Logger, func(path string) bool { return path == "/quiet" }))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/quiet", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/fail", func(c echo.Context) error { return NewNotFoundError("audit", "x") })

	for _, path := range []string{"/ok", "/quiet", "/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("http request").All()
	assert.Len(t, entries, 2)
	logs.AssertLogged(t, zapcore.WarnLevel, "http request")
	assert.Equal(t, "/ok", entries[0].ContextMap()["uri"])
	assert.EqualValues(t, http.StatusNotFound, entries[1].ContextMap()["status"])
}

func TestMetricsMiddleware(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(Metrics())
	e.GET("/api/audits/:id", func(c echo.Context) error { return NewNotFoundError("audit", c.Param("id")) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/audits/:id", "404")
	before := promtestutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audits/one", nil))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audits/two", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+2, promtestutil.ToFloat64(counter))
}

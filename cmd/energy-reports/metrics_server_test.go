package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rcourtman/energy-reports/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestMetricsServerRoutes(t *testing.T) {
	metrics.RecordFetch("solar", metrics.FetchLive)
	srv := newMetricsServer("127.0.0.1:0")

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "energy_reports_fetches_total")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/platform/metrics"
	"claimdesk/internal/platform/middleware"
)

type pingRoutes struct{}

func (pingRoutes) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func newTestRouter(prefix string, checks ...ReadinessCheck) http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Config{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:   metrics.NewWithRegisterer(reg),
		Gatherer:  reg,
		APIPrefix: prefix,
		Readiness: checks,
		Now:       func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) },
	}, pingRoutes{})
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter("/api/v1"), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC), body.Timestamp)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestAPIPrefix(t *testing.T) {
	router := newTestRouter("/api/v1")
	assert.Equal(t, http.StatusNoContent, serve(router, "/api/v1/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, "/ping").Code)

	root := newTestRouter("")
	assert.Equal(t, http.StatusNoContent, serve(root, "/ping").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter("/api/v1")
	serve(router, "/api/v1/ping")

	rec := serve(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "claimdesk_http_requests_total")
}

func TestReady(t *testing.T) {
	ok := ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	assert.Equal(t, http.StatusOK, serve(newTestRouter("", ok), "/ready").Code)

	rec := serve(newTestRouter("", ok, down), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

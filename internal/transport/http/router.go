package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimdesk/internal/platform/metrics"
	"claimdesk/internal/platform/middleware"
	"claimdesk/pkg/platform/httputil"
	"claimdesk/pkg/platform/middleware/metadata"
	"claimdesk/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a bounded context's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(context.Context) error
}

// Config collects what the router needs from main.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	APIPrefix      string
	RequestTimeout time.Duration
	Readiness      []ReadinessCheck
	Now            func() time.Time
}

// NewRouter wires the shared middleware chain, operational endpoints and the
// API routes under cfg.APIPrefix.
func NewRouter(cfg Config, registrars ...RouteRegistrar) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.MiddlewareWithClock(cfg.Now))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.Now))
	r.Get("/ready", readyHandler(cfg.Readiness))
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	api := func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.ContentTypeJSON)
		for _, reg := range registrars {
			reg.Register(r)
		}
	}
	if cfg.APIPrefix == "" {
		r.Group(api)
	} else {
		r.Route(cfg.APIPrefix, api)
	}
	return r
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func healthHandler(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: now().UTC()})
	}
}

type checkResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func readyHandler(checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make([]checkResult, 0, len(checks))
		ready := true
		for _, check := range checks {
			start := time.Now()
			res := checkResult{Name: check.Name, Status: "ok"}
			if err := check.Check(r.Context()); err != nil {
				ready = false
				res.Status = "fail"
				res.Error = err.Error()
			}
			res.DurationMs = time.Since(start).Milliseconds()
			results = append(results, res)
		}

		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": label,
			"checks": results,
		})
	}
}

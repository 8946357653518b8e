package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"brokerage/internal/platform/middleware"
	"brokerage/pkg/platform/httputil"
	"brokerage/pkg/platform/middleware/metadata"
	"brokerage/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one backing service for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterConfig carries the optional handlers mounted next to the API.
type RouterConfig struct {
	Metrics http.Handler
	// Objects serves stored documents under /objects/.
	Objects http.Handler
	Checks  []HealthCheck
	Timeout time.Duration
}

// NewRouter builds the root router with the shared middleware chain.
func NewRouter(h *Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(cfg.Timeout))

	r.Get("/healthz", healthHandler(cfg.Checks, logger))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.Objects != nil {
		r.Handle("/objects/*", http.StripPrefix("/objects", cfg.Objects))
	}
	h.Register(r)
	return r
}

type healthResponse struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failed []string
		for _, check := range checks {
			if err := check.Check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "check", check.Name, "error", err)
				failed = append(failed, check.Name)
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Failed: failed})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

package httpserver

import (
	"net/http"
	"time"

	"brokerage/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

// New builds the API server. The write timeout must outlast the router's
// per-request timeout.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Package httpserver owns the HTTP/HTTPS listener of a webhost instance.
package httpserver

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Static serves everything not matched by another route.
	Static http.Handler

	// Status serves /status. Optional.
	Status http.Handler

	// Metrics serves /metrics. Optional.
	Metrics http.Handler

	// Logger for request logging.
	Logger *slog.Logger

	// RateLimit is the per-IP rate limit (requests/second). Zero disables it.
	RateLimit int

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty means
	// clients are identified by their peer address only.
	TrustedProxies []netip.Prefix

	// EnableAudit logs every request.
	EnableAudit bool
}

// NewRouter creates the router shared by the plain and secure listeners.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Order: Recover -> RequestID -> ClientIP -> RateLimit -> Audit -> Handler
	r.Use(Recover(logger), RequestID(), ClientIP(cfg.TrustedProxies))
	if cfg.RateLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit))
	}
	if cfg.EnableAudit {
		r.Use(Audit(logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	if cfg.Status != nil {
		r.Method(http.MethodGet, "/status", cfg.Status)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	static := cfg.Static
	if static == nil {
		static = http.NotFoundHandler()
	}
	r.Handle("/*", static)

	return r
}

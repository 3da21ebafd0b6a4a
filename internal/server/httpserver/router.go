// Package httpserver provides the HTTP/HTTPS server for TabSess.
package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/tabsess-go/internal/core/service"
	"github.com/yndnr/tabsess-go/internal/server/httpserver/handler"
	"github.com/yndnr/tabsess-go/internal/storage/catalog"
	"github.com/yndnr/tabsess-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// SessionService handles session operations.
	SessionService *service.SessionService

	// Catalog holds registered datasets.
	Catalog *catalog.Catalog

	// Metrics holds the prometheus instruments; nil disables
	// instrumentation and the /metrics endpoint.
	Metrics *metric.Metrics

	// Logger for request logging.
	Logger *slog.Logger

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RateLimitRPS is the sustained per-client-IP request rate
	// (requests/second). Zero disables rate limiting.
	RateLimitRPS float64

	// RateLimitBurst is the per-client-IP burst allowance.
	RateLimitBurst int
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	h := handler.New(cfg.SessionService, cfg.Catalog, cfg.Metrics, cfg.Logger)

	mux := http.NewServeMux()

	// Health endpoints bypass rate limiting so orchestration probes
	// cannot be starved out by API traffic.
	probeHandler := Chain(h,
		Recover(cfg.Logger),
		RequestID(),
	)
	mux.Handle("GET /health", probeHandler)
	mux.Handle("GET /ready", probeHandler)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(),
			Recover(cfg.Logger),
			RequestID(),
		))
	}

	// Business API endpoints.
	// Order: Recover -> CORS -> RequestID -> RateLimit -> RequestLog -> Handler
	middlewares := []Middleware{
		Recover(cfg.Logger),
		CORS(cfg.CORSAllowedOrigins),
		RequestID(),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS)
		}
		middlewares = append(middlewares, RateLimit(cfg.RateLimitRPS, burst))
	}
	middlewares = append(middlewares, RequestLog(cfg.Logger, cfg.Metrics))

	apiHandler := Chain(h, middlewares...)

	// Dataset endpoints
	mux.Handle("POST /datasets", apiHandler)
	mux.Handle("GET /datasets/{id}", apiHandler)

	// Session endpoints
	mux.Handle("POST /sessions", apiHandler)
	mux.Handle("GET /sessions/{id}", apiHandler)
	mux.Handle("GET /sessions/{id}/history", apiHandler)
	mux.Handle("POST /sessions/{id}/operations", apiHandler)
	mux.Handle("POST /sessions/{id}/undo", apiHandler)
	mux.Handle("POST /sessions/{id}/redo", apiHandler)
	mux.Handle("POST /sessions/{id}/close", apiHandler)

	return mux
}

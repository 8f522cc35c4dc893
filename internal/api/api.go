package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"boombot/internal/metrics"
	"boombot/pkg/boombot"
)

// Options controls router construction.
type Options struct {
	Advisor *boombot.Advisor
	Logger  *slog.Logger
	// Metrics is optional; when set, requests are instrumented and /metrics is served.
	Metrics        *metrics.Collector
	AllowedOrigins []string
}

// NewRouter builds the HTTP API router.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoveryLoggingMiddleware(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(requestLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	h := &handler{advisor: opts.Advisor, logger: logger}

	r.Get("/api/health", h.health)

	// Sectors
	r.Get("/api/sectors", h.getSectors)
	r.Post("/api/sectors/validate", h.validateSector)

	// Recommendations
	r.Post("/api/recommendations", h.recommend)
	r.Post("/api/recommendations/stream", h.recommendStream)
	r.Post("/api/recommendations/format", h.formatResponse)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	return r
}

type handler struct {
	advisor *boombot.Advisor
	logger  *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

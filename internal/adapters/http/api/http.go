// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/cinerec/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CatalogDependencies
	RecommendDependencies

	// Ping reports whether the catalog store is reachable.
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	catalogHandler   *CatalogHandler
	recommendHandler *RecommendHandler
	logger           logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server and its handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps, s.logger)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.catalogHandler = NewCatalogHandler(deps, s.logger)
	s.recommendHandler = NewRecommendHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)

		r.Get("/healthz", s.healthHandler.HandleHealth)
		r.Get("/readyz", s.healthHandler.HandleReady)
		r.Get("/stats", s.statsHandler.HandleStats)

		r.Route("/api", func(r chi.Router) {
			r.Get("/items", s.catalogHandler.HandleItems)
			r.Get("/items/popular", s.catalogHandler.HandlePopular)
			r.Get("/item/{itemId}", s.catalogHandler.HandleItem)
			r.Get("/search", s.catalogHandler.HandleSearch)
			r.Get("/recommendations/item/{itemId}", s.recommendHandler.HandleItemBased)
			r.Get("/recommendations/{userId}", s.recommendHandler.HandleUserBased)
		})
	})
	r.Get("/metrics", s.healthHandler.HandleMetrics)
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err, logs it and writes the error body. Server-side
// failures are logged with full detail; clients only see what classify
// chooses to expose.
func writeError(ctx context.Context, w http.ResponseWriter, l logger.Logger, err error) {
	status, body := classify(err)
	switch {
	case status == http.StatusServiceUnavailable:
		l.Warn(ctx, "request rejected", logger.String("code", body.Code), logger.Error(err))
	case status >= http.StatusInternalServerError:
		l.Error(ctx, "request failed", logger.Int("status", status), logger.String("code", body.Code), logger.Error(err))
	default:
		l.Debug(ctx, "request invalid", logger.Int("status", status), logger.Error(err))
	}
	writeJSON(w, status, body)
}

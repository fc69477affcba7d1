// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the engine over HTTP under /api/v1.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ManuGH/reelbox/internal/api/middleware"
	"github.com/ManuGH/reelbox/internal/auth"
	"github.com/ManuGH/reelbox/internal/catalog"
	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/recommend"
)

// Streamer writes a video stream.
type Streamer interface {
	ServeVideo(w http.ResponseWriter, r *http.Request, videoID string)
}

// ProgressTracker records and reads watch progress.
type ProgressTracker interface {
	Record(ctx context.Context, profileID, videoID string, position, duration float64) (domain.Progress, error)
	Get(ctx context.Context, profileID, videoID string) (domain.Progress, error)
	DeleteForProfile(ctx context.Context, profileID string) (int64, error)
}

// Catalog serves listings, successors and likes.
type Catalog interface {
	Query(ctx context.Context, profileID string, q catalog.Query) (catalog.Page, error)
	Home(ctx context.Context, profileID, search string, limit *int) (catalog.Home, error)
	Next(ctx context.Context, videoID string) (*domain.Video, error)
	Like(ctx context.Context, profileID, videoID string) (catalog.Entry, error)
	Unlike(ctx context.Context, profileID, videoID string) (catalog.Entry, error)
}

// Recommender ranks videos for a profile.
type Recommender interface {
	Recommend(ctx context.Context, profileID string, limit *int) ([]recommend.Recommendation, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Stream    Streamer
	Progress  ProgressTracker
	Catalog   Catalog
	Recommend Recommender
	// Ready reports whether backing stores are reachable. Nil means ready.
	Ready func(ctx context.Context) error
}

// Config holds router options.
type Config struct {
	ServiceToken      string
	RateLimitEnabled  bool
	RequestsPerMinute int
	TracingService    string
	Registerer        prometheus.Registerer
}

// Server binds Deps to routes.
type Server struct {
	deps Deps
	cfg  Config
}

// New creates the API server.
func New(cfg Config, deps Deps) *Server {
	return &Server{deps: deps, cfg: cfg}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	middleware.ApplyStack(r, middleware.StackConfig{
		Registerer:        s.cfg.Registerer,
		TracingService:    s.cfg.TracingService,
		EnableLogging:     true,
		EnableRateLimit:   s.cfg.RateLimitEnabled,
		RequestsPerMinute: s.cfg.RequestsPerMinute,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireProfile)

			r.Get("/videos/{videoID}/stream", s.handleStream)
			r.Head("/videos/{videoID}/stream", s.handleStream)
			r.Get("/videos/{videoID}/progress", s.handleGetProgress)
			r.Put("/videos/{videoID}/progress", s.handlePutProgress)
			r.Get("/videos/{videoID}/next", s.handleNext)
			r.Put("/videos/{videoID}/like", s.handleLike)
			r.Delete("/videos/{videoID}/like", s.handleUnlike)

			r.Get("/catalog", s.handleCatalog)
			r.Get("/catalog/home", s.handleHome)
			r.Get("/recommendations", s.handleRecommendations)
		})

		r.With(auth.RequireServiceToken(s.cfg.ServiceToken)).
			Delete("/profiles/{profileID}/progress", s.handleDeleteProfileProgress)
	})
	return r
}

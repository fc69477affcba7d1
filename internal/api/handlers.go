// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/reelbox/internal/auth"
	"github.com/ManuGH/reelbox/internal/catalog"
	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/problem"
	"github.com/ManuGH/reelbox/internal/recommend"
	"github.com/ManuGH/reelbox/internal/validation"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			log.WithComponentFromContext(ctx, "api").Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// GET, HEAD /api/v1/videos/{videoID}/stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.deps.Stream.ServeVideo(w, r, chi.URLParam(r, "videoID"))
}

type progressRequest struct {
	Position *float64 `json:"position" validate:"required"`
	Duration *float64 `json:"duration" validate:"required"`
}

type progressResponse struct {
	domain.Progress
	InProgress bool `json:"inProgress"`
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Progress.Get(r.Context(), auth.ProfileID(r.Context()), chi.URLParam(r, "videoID"))
	if err != nil {
		problem.WriteError(w, r, "progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, progressResponse{Progress: p, InProgress: p.InProgress()})
}

// PUT /api/v1/videos/{videoID}/progress
func (s *Server) handlePutProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.WriteError(w, r, "progress", err)
		return
	}
	if err := validation.Struct(req); err != nil {
		problem.WriteError(w, r, "progress", err)
		return
	}
	p, err := s.deps.Progress.Record(r.Context(), auth.ProfileID(r.Context()), chi.URLParam(r, "videoID"), *req.Position, *req.Duration)
	if err != nil {
		problem.WriteError(w, r, "progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, progressResponse{Progress: p, InProgress: p.InProgress()})
}

type catalogParams struct {
	Mode   string `query:"mode" validate:"max=128"`
	Genre  string `query:"genre" validate:"max=128"`
	Search string `query:"q" validate:"max=256"`
	Page   *int   `query:"page" validate:"omitempty,gte=0"`
	Offset *int   `query:"offset" validate:"omitempty,gte=0"`
	Limit  *int   `query:"limit" validate:"omitempty,gte=0"`
}

func parseCatalogParams(r *http.Request) (catalogParams, error) {
	q := r.URL.Query()
	p := catalogParams{Mode: q.Get("mode"), Genre: q.Get("genre"), Search: q.Get("q")}
	var err error
	if p.Page, err = intParam(r, "page"); err != nil {
		return p, err
	}
	if p.Offset, err = intParam(r, "offset"); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(r, "limit"); err != nil {
		return p, err
	}
	return p, validation.Struct(p)
}

// GET /api/v1/catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	params, err := parseCatalogParams(r)
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	mode, genre, err := catalog.ParseMode(params.Mode)
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	if genre == "" {
		genre = params.Genre
	}

	profileID := auth.ProfileID(r.Context())
	if mode == catalog.ModeHome {
		home, err := s.deps.Catalog.Home(r.Context(), profileID, params.Search, params.Limit)
		if err != nil {
			problem.WriteError(w, r, "catalog", err)
			return
		}
		writeJSON(w, r, http.StatusOK, home)
		return
	}

	page, err := s.deps.Catalog.Query(r.Context(), profileID, catalog.Query{
		Mode:   mode,
		Genre:  genre,
		Search: params.Search,
		Page:   params.Page,
		Offset: params.Offset,
		Limit:  params.Limit,
	})
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// GET /api/v1/catalog/home
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	params, err := parseCatalogParams(r)
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	home, err := s.deps.Catalog.Home(r.Context(), auth.ProfileID(r.Context()), params.Search, params.Limit)
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	writeJSON(w, r, http.StatusOK, home)
}

// GET /api/v1/videos/{videoID}/next
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	next, err := s.deps.Catalog.Next(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	if next == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, r, http.StatusOK, next)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Catalog.Like(r.Context(), auth.ProfileID(r.Context()), chi.URLParam(r, "videoID"))
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Catalog.Unlike(r.Context(), auth.ProfileID(r.Context()), chi.URLParam(r, "videoID"))
	if err != nil {
		problem.WriteError(w, r, "catalog", err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

type recommendationsResponse struct {
	Items []recommend.Recommendation `json:"items"`
}

// GET /api/v1/recommendations
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		problem.WriteError(w, r, "recommend", err)
		return
	}
	recs, err := s.deps.Recommend.Recommend(r.Context(), auth.ProfileID(r.Context()), limit)
	if err != nil {
		problem.WriteError(w, r, "recommend", err)
		return
	}
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	writeJSON(w, r, http.StatusOK, recommendationsResponse{Items: recs})
}

// DELETE /api/v1/profiles/{profileID}/progress
func (s *Server) handleDeleteProfileProgress(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Progress.DeleteForProfile(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		problem.WriteError(w, r, "progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"deleted": n})
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package recommend ranks catalog videos by genre affinity with what a
// profile liked and watched.
package recommend

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/ManuGH/reelbox/internal/cache"
	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/profile"
	"github.com/ManuGH/reelbox/internal/telemetry"
)

const (
	likedWeight   = 3.0
	watchedWeight = 2.0
	cachePrefix   = "recs:"
)

// Catalog lists the videos eligible for recommendation.
type Catalog interface {
	Videos(ctx context.Context) ([]domain.Video, error)
}

// History lists a profile's progress records, most recent first.
type History interface {
	History(ctx context.Context, profileID string) ([]domain.Progress, error)
}

// Config holds scorer limits.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	TopGenres    int
	CacheTTL     time.Duration
}

// DefaultConfig returns the built-in scorer limits.
func DefaultConfig() Config {
	return Config{DefaultLimit: 20, MaxLimit: 100, TopGenres: 6, CacheTTL: 60 * time.Second}
}

// Recommendation is one ranked video. Score is zero for seed fallbacks.
type Recommendation struct {
	Video domain.Video `json:"video"`
	Score float64      `json:"score"`
}

// Scorer produces recommendations.
type Scorer struct {
	catalog Catalog
	likes   profile.Likes
	history History
	cache   cache.Cache
	cfg     Config
	group   singleflight.Group
	results *prometheus.CounterVec

	mu   sync.Mutex
	gens map[string]uint64 // bumped by Invalidate
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithCache caches results per (profile, limit).
func WithCache(c cache.Cache) Option {
	return func(s *Scorer) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithRegisterer exports request counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Scorer) {
		s.results = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "reelbox_recommend_requests_total",
			Help: "Recommendation requests by outcome (hit, computed, shared)",
		}, []string{"result"})
	}
}

// NewScorer creates a scorer. Zero config fields take defaults.
func NewScorer(catalog Catalog, likes profile.Likes, history History, cfg Config, opts ...Option) *Scorer {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.TopGenres <= 0 {
		cfg.TopGenres = def.TopGenres
	}
	s := &Scorer{
		catalog: catalog,
		likes:   likes,
		history: history,
		cache:   cache.NewNoOpCache(),
		cfg:     cfg,
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend returns up to limit videos for profileID. A nil limit selects
// the default.
func (s *Scorer) Recommend(ctx context.Context, profileID string, limit *int) ([]Recommendation, error) {
	ctx, span := telemetry.Tracer("reelbox/recommend").Start(ctx, "recommend.recommend")
	defer span.End()

	pid, err := domain.ParseID(profileID)
	if err != nil {
		return nil, err
	}
	n := s.cfg.DefaultLimit
	if limit != nil {
		if *limit < 0 {
			return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrValidation)
		}
		n = *limit
	}
	n = min(max(n, 1), s.cfg.MaxLimit)
	span.SetAttributes(attribute.Int("recommend.limit", n))

	key := cachePrefix + pid + ":" + strconv.Itoa(n)
	if recs, ok := cache.GetJSON[[]Recommendation](ctx, s.cache, key); ok {
		s.count("hit")
		return recs, nil
	}

	// Callers arriving after an invalidation start a fresh flight. The
	// shared computation outlives any single caller's cancellation.
	gen := s.generation(pid)
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		recs, err := s.compute(flightCtx, pid, n)
		if err != nil {
			return nil, err
		}
		s.store(flightCtx, pid, key, gen, recs)
		return recs, nil
	})
	if err != nil {
		telemetry.RecordError(span, err, domain.ErrorClass(err))
		return nil, err
	}
	if shared {
		s.count("shared")
	} else {
		s.count("computed")
	}
	return slices.Clone(v.([]Recommendation)), nil
}

// Invalidate drops cached results of profileID. It is registered as the
// like and progress write hook. Computations already in flight for the
// profile are not cached.
func (s *Scorer) Invalidate(ctx context.Context, profileID string) {
	s.mu.Lock()
	s.gens[profileID]++
	s.mu.Unlock()
	s.cache.DeletePrefix(ctx, cachePrefix+profileID+":")
}

func (s *Scorer) generation(profileID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[profileID]
}

// store caches recs unless profileID was invalidated since gen was read.
// The second check catches an Invalidate that ran between check and write.
func (s *Scorer) store(ctx context.Context, profileID, key string, gen uint64, recs []Recommendation) {
	if s.cfg.CacheTTL <= 0 || s.generation(profileID) != gen {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, recs, s.cfg.CacheTTL); err != nil {
		log.WithComponentFromContext(ctx, "recommend").Warn().Err(err).Msg("failed to cache recommendations")
		return
	}
	if s.generation(profileID) != gen {
		s.cache.Delete(ctx, key)
	}
}

func (s *Scorer) count(result string) {
	if s.results != nil {
		s.results.WithLabelValues(result).Inc()
	}
}

func (s *Scorer) compute(ctx context.Context, profileID string, limit int) ([]Recommendation, error) {
	likedIDs, err := s.likes.LikedVideoIDs(ctx, profileID)
	if err != nil {
		return nil, err
	}
	records, err := s.history.History(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(likedIDs) == 0 && len(records) == 0 {
		return []Recommendation{}, nil
	}
	all, err := s.catalog.Videos(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Video, len(all))
	for _, v := range all {
		byID[v.ID] = v
	}
	watchedIDs := make([]string, 0, len(records))
	for _, p := range records {
		watchedIDs = append(watchedIDs, p.VideoID)
	}
	liked := resolve(likedIDs, byID)
	watched := resolve(watchedIDs, byID)

	topLiked := topGenres(liked, s.cfg.TopGenres)
	topWatched := topGenres(watched, s.cfg.TopGenres)

	seeds := make(map[string]struct{}, len(liked)+len(watched))
	for _, v := range liked {
		seeds[v.ID] = struct{}{}
	}
	for _, v := range watched {
		seeds[v.ID] = struct{}{}
	}

	var recs []Recommendation
	for _, v := range all {
		if _, isSeed := seeds[v.ID]; isSeed {
			continue
		}
		l, w := overlap(v, topLiked), overlap(v, topWatched)
		if l == 0 && w == 0 {
			continue
		}
		recs = append(recs, Recommendation{Video: v, Score: Score(l, w, v.Likes)})
	}

	if len(recs) == 0 {
		return fallback(liked, watched, limit), nil
	}

	slices.SortFunc(recs, func(a, b Recommendation) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(b.Video.Likes, a.Video.Likes),
			strings.Compare(a.Video.Title, b.Video.Title),
			strings.Compare(a.Video.ID, b.Video.ID),
		)
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	log.WithComponentFromContext(ctx, "recommend").Debug().
		Str(log.FieldEvent, "recommend.computed").
		Int("liked_seeds", len(liked)).
		Int("watched_seeds", len(watched)).
		Int("returned", len(recs)).
		Msg("recommendations computed")
	return recs, nil
}

// Score combines genre matches with popularity:
// 3*likedMatches + 2*watchedMatches + log2(likes+1).
func Score(likedMatches, watchedMatches, likes int) float64 {
	return likedWeight*float64(likedMatches) + watchedWeight*float64(watchedMatches) + math.Log2(float64(max(likes, 0)+1))
}

// resolve maps ids to videos, dropping unknown ids and duplicates.
func resolve(ids []string, byID map[string]domain.Video) []domain.Video {
	seen := make(map[string]struct{}, len(ids))
	out := make([]domain.Video, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, v)
	}
	return out
}

// topGenres returns the n most frequent folded genres of seeds. Ties keep
// first-seen order.
func topGenres(seeds []domain.Video, n int) map[string]struct{} {
	type tally struct {
		genre string
		count int
		first int
	}
	var tallies []*tally
	idx := make(map[string]*tally)
	for _, v := range seeds {
		for _, g := range v.Genres {
			k := fold(g)
			t, ok := idx[k]
			if !ok {
				t = &tally{genre: k, first: len(tallies)}
				idx[k] = t
				tallies = append(tallies, t)
			}
			t.count++
		}
	}
	slices.SortStableFunc(tallies, func(a, b *tally) int {
		return cmp.Or(cmp.Compare(b.count, a.count), cmp.Compare(a.first, b.first))
	})

	top := make(map[string]struct{}, min(n, len(tallies)))
	for _, t := range tallies[:min(n, len(tallies))] {
		top[t.genre] = struct{}{}
	}
	return top
}

func overlap(v domain.Video, genres map[string]struct{}) int {
	n := 0
	for _, g := range v.Genres {
		if _, ok := genres[fold(g)]; ok {
			n++
		}
	}
	return n
}

// fallback returns the seeds themselves, liked first, when nothing else
// matches.
func fallback(liked, watched []domain.Video, limit int) []Recommendation {
	seen := make(map[string]struct{}, len(liked)+len(watched))
	out := make([]Recommendation, 0, min(limit, len(liked)+len(watched)))
	for _, v := range slices.Concat(liked, watched) {
		if len(out) == limit {
			break
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, Recommendation{Video: v})
	}
	return out
}

func fold(s string) string {
	return cases.Fold().String(s)
}

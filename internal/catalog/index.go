// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog lists, pages and orders the video catalog for a viewer.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/ManuGH/reelbox/internal/cache"
	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/profile"
	"github.com/ManuGH/reelbox/internal/telemetry"
)

const homeCachePrefix = "catalog:home:"

// ProgressSource is the part of the progress tracker the catalog reads.
type ProgressSource interface {
	InProgress(ctx context.Context, profileID string) ([]domain.Progress, error)
	History(ctx context.Context, profileID string) ([]domain.Progress, error)
}

// LikeHook runs after a like state change for profileID.
type LikeHook func(ctx context.Context, profileID string)

// Config holds the listing limits.
type Config struct {
	DefaultLimit int
	MaxLimit     int
	HomePopular  int
	HomeCacheTTL time.Duration
}

// DefaultConfig returns the built-in listing limits.
func DefaultConfig() Config {
	return Config{DefaultLimit: 24, MaxLimit: 60, HomePopular: 10, HomeCacheTTL: 30 * time.Second}
}

// Index answers catalog queries.
type Index struct {
	store    Store
	likes    profile.Likes
	progress ProgressSource
	cache    cache.Cache
	cfg      Config
	hooks    []LikeHook
}

// Option configures an Index.
type Option func(*Index)

// WithCache sets the cache for home sections.
func WithCache(c cache.Cache) Option {
	return func(ix *Index) {
		if c != nil {
			ix.cache = c
		}
	}
}

// WithLikeHook registers fn to run after Like or Unlike changed state.
func WithLikeHook(fn LikeHook) Option {
	return func(ix *Index) {
		if fn != nil {
			ix.hooks = append(ix.hooks, fn)
		}
	}
}

// NewIndex creates a catalog index. Zero config fields take defaults.
func NewIndex(store Store, likes profile.Likes, progress ProgressSource, cfg Config, opts ...Option) *Index {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.HomePopular <= 0 {
		cfg.HomePopular = def.HomePopular
	}
	ix := &Index{
		store:    store,
		likes:    likes,
		progress: progress,
		cache:    cache.NewNoOpCache(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Video returns one catalog entry.
func (ix *Index) Video(ctx context.Context, id string) (domain.Video, error) {
	vid, err := domain.ParseID(id)
	if err != nil {
		return domain.Video{}, err
	}
	return ix.store.Video(ctx, vid)
}

// Query returns one page of the listing selected by q.
func (ix *Index) Query(ctx context.Context, profileID string, q Query) (Page, error) {
	if q.Mode == "" {
		q.Mode = ModeTitle
	}
	ctx, span := telemetry.Tracer("reelbox/catalog").Start(ctx, "catalog.query")
	defer span.End()

	pid, err := domain.ParseID(profileID)
	if err != nil {
		return Page{}, err
	}
	offset, limit, err := window(q, ix.cfg.DefaultLimit, ix.cfg.MaxLimit)
	if err != nil {
		return Page{}, err
	}
	span.SetAttributes(telemetry.CatalogAttributes(string(q.Mode), offset, limit, q.Search)...)

	videos, err := ix.listing(ctx, pid, q)
	if err != nil {
		telemetry.RecordError(span, err, domain.ErrorClass(err))
		return Page{}, err
	}

	entries, err := ix.decorate(ctx, pid, paginate(videos, offset, limit))
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:      entries,
		Total:      len(videos),
		Offset:     offset,
		Limit:      limit,
		NextOffset: offset + len(entries),
	}, nil
}

func (ix *Index) listing(ctx context.Context, profileID string, q Query) ([]domain.Video, error) {
	switch q.Mode {
	case ModeContinue:
		return ix.continueWatching(ctx, profileID, q.Search)
	case ModeHome:
		return nil, fmt.Errorf("%w: home mode is served by the home endpoint", domain.ErrValidation)
	}

	all, err := ix.store.Videos(ctx)
	if err != nil {
		return nil, err
	}
	switch q.Mode {
	case ModeTitle:
		vs := filterSearch(all, q.Search)
		sortByTitle(vs)
		return vs, nil
	case ModePopularity:
		return popular(all, q.Search), nil
	case ModeGenre:
		if strings.TrimSpace(q.Genre) == "" {
			return nil, fmt.Errorf("%w: genre mode needs a genre", domain.ErrValidation)
		}
		return byGenre(all, q.Genre, q.Search), nil
	default:
		return nil, fmt.Errorf("%w: unknown catalog mode %q", domain.ErrValidation, q.Mode)
	}
}

// continueWatching resolves in-progress records to videos, most recent
// first. Records whose video has left the catalog are skipped.
func (ix *Index) continueWatching(ctx context.Context, profileID, search string) ([]domain.Video, error) {
	records, err := ix.progress.InProgress(ctx, profileID)
	if err != nil {
		return nil, err
	}
	needle := fold(strings.TrimSpace(search))
	out := make([]domain.Video, 0, len(records))
	for _, p := range records {
		v, err := ix.store.Video(ctx, p.VideoID)
		if errors.Is(err, domain.ErrNotFound) {
			log.WithComponentFromContext(ctx, "catalog").Debug().
				Str(log.FieldEvent, "catalog.dangling_progress").
				Str(log.FieldVideoID, p.VideoID).
				Msg("progress refers to a missing video")
			continue
		}
		if err != nil {
			return nil, err
		}
		if matches(v, needle) {
			out = append(out, v)
		}
	}
	return out, nil
}

// markers holds the viewer state attached to listed entries.
type markers struct {
	liked    map[string]struct{}
	progress map[string]domain.Progress
}

// loadMarkers reads the viewer's likes and progress once.
func (ix *Index) loadMarkers(ctx context.Context, profileID string) (markers, error) {
	liked, err := ix.likes.LikedVideoIDs(ctx, profileID)
	if err != nil {
		return markers{}, err
	}
	history, err := ix.progress.History(ctx, profileID)
	if err != nil {
		return markers{}, err
	}
	m := markers{
		liked:    make(map[string]struct{}, len(liked)),
		progress: make(map[string]domain.Progress, len(history)),
	}
	for _, id := range liked {
		m.liked[id] = struct{}{}
	}
	for _, p := range history {
		m.progress[p.VideoID] = p
	}
	return m, nil
}

func (m markers) apply(videos []domain.Video) []Entry {
	entries := make([]Entry, 0, len(videos))
	for _, v := range videos {
		e := Entry{Video: v}
		_, e.Liked = m.liked[v.ID]
		if p, ok := m.progress[v.ID]; ok {
			e.Progress = &p
		}
		entries = append(entries, e)
	}
	return entries
}

// decorate attaches the viewer's liked and progress markers.
func (ix *Index) decorate(ctx context.Context, profileID string, videos []domain.Video) ([]Entry, error) {
	if len(videos) == 0 {
		return []Entry{}, nil
	}
	m, err := ix.loadMarkers(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return m.apply(videos), nil
}

// GenreSection is one genre row of the home screen.
type GenreSection struct {
	Genre string  `json:"genre"`
	Items []Entry `json:"items"`
}

// Home is the composite landing listing.
type Home struct {
	Continue []Entry        `json:"continue"`
	Popular  []Entry        `json:"popular"`
	Genres   []GenreSection `json:"genres"`
}

type browseGenre struct {
	Genre  string         `json:"genre"`
	Videos []domain.Video `json:"videos"`
}

type browseSections struct {
	Popular []domain.Video `json:"popular"`
	Genres  []browseGenre  `json:"genres"`
}

// Home builds continue-watching, most popular and one row per genre. The
// profile-independent rows are cached per search term.
func (ix *Index) Home(ctx context.Context, profileID, search string, limit *int) (Home, error) {
	ctx, span := telemetry.Tracer("reelbox/catalog").Start(ctx, "catalog.home")
	defer span.End()

	pid, err := domain.ParseID(profileID)
	if err != nil {
		return Home{}, err
	}
	_, lim, err := window(Query{Limit: limit}, ix.cfg.DefaultLimit, ix.cfg.MaxLimit)
	if err != nil {
		return Home{}, err
	}

	var (
		cont   []domain.Video
		browse browseSections
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vs, err := ix.continueWatching(gctx, pid, search)
		cont = paginate(vs, 0, lim)
		return err
	})
	g.Go(func() error {
		var err error
		browse, err = ix.browse(gctx, search, lim)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err, domain.ErrorClass(err))
		return Home{}, err
	}

	m, err := ix.loadMarkers(ctx, pid)
	if err != nil {
		telemetry.RecordError(span, err, domain.ErrorClass(err))
		return Home{}, err
	}
	h := Home{
		Continue: m.apply(cont),
		Popular:  m.apply(browse.Popular),
		Genres:   make([]GenreSection, 0, len(browse.Genres)),
	}
	for _, bg := range browse.Genres {
		h.Genres = append(h.Genres, GenreSection{Genre: bg.Genre, Items: m.apply(bg.Videos)})
	}
	span.SetAttributes(attribute.Int("catalog.home.genres", len(h.Genres)))
	return h, nil
}

func (ix *Index) browse(ctx context.Context, search string, limit int) (browseSections, error) {
	key := homeCachePrefix + strconv.Itoa(limit) + ":" + fold(strings.TrimSpace(search))
	if cached, ok := cache.GetJSON[browseSections](ctx, ix.cache, key); ok {
		return cached, nil
	}

	all, err := ix.store.Videos(ctx)
	if err != nil {
		return browseSections{}, err
	}
	out := browseSections{
		Popular: paginate(popular(all, search), 0, ix.cfg.HomePopular),
	}
	for _, genre := range genresOf(filterSearch(all, search)) {
		out.Genres = append(out.Genres, browseGenre{
			Genre:  genre,
			Videos: paginate(byGenre(all, genre, search), 0, limit),
		})
	}

	if ix.cfg.HomeCacheTTL > 0 {
		if err := cache.SetJSON(ctx, ix.cache, key, out, ix.cfg.HomeCacheTTL); err != nil {
			log.WithComponentFromContext(ctx, "catalog").Warn().Err(err).Msg("failed to cache home sections")
		}
	}
	return out, nil
}

// Next returns the video that follows videoID: the next episode of its
// series, or the next movie in title order (wrapping). Nil when there is
// none.
func (ix *Index) Next(ctx context.Context, videoID string) (*domain.Video, error) {
	vid, err := domain.ParseID(videoID)
	if err != nil {
		return nil, err
	}
	cur, err := ix.store.Video(ctx, vid)
	if err != nil {
		return nil, err
	}
	all, err := ix.store.Videos(ctx)
	if err != nil {
		return nil, err
	}

	if cur.IsEpisode() {
		var next *domain.Video
		for i := range all {
			v := all[i]
			if !v.IsEpisode() || v.SeriesID != cur.SeriesID || v.Episode <= cur.Episode {
				continue
			}
			if next == nil || v.Episode < next.Episode {
				next = &all[i]
			}
		}
		return next, nil
	}

	movies := slices.DeleteFunc(all, domain.Video.IsEpisode)
	if len(movies) < 2 {
		return nil, nil
	}
	sortByTitle(movies)
	i := slices.IndexFunc(movies, func(v domain.Video) bool { return v.ID == cur.ID })
	next := movies[(i+1)%len(movies)]
	return &next, nil
}

// Like records a like. The like count moves only when the like is new.
func (ix *Index) Like(ctx context.Context, profileID, videoID string) (Entry, error) {
	return ix.setLike(ctx, profileID, videoID, true)
}

// Unlike removes a like. The like count moves only when a like existed.
func (ix *Index) Unlike(ctx context.Context, profileID, videoID string) (Entry, error) {
	return ix.setLike(ctx, profileID, videoID, false)
}

func (ix *Index) setLike(ctx context.Context, profileID, videoID string, like bool) (Entry, error) {
	pid, err := domain.ParseID(profileID)
	if err != nil {
		return Entry{}, err
	}
	vid, err := domain.ParseID(videoID)
	if err != nil {
		return Entry{}, err
	}
	v, err := ix.store.Video(ctx, vid)
	if err != nil {
		return Entry{}, err
	}

	var changed bool
	delta := 1
	if like {
		changed, err = ix.likes.AddLike(ctx, pid, vid)
	} else {
		changed, err = ix.likes.RemoveLike(ctx, pid, vid)
		delta = -1
	}
	if err != nil {
		return Entry{}, err
	}
	if !changed {
		return Entry{Video: v, Liked: like}, nil
	}

	if v, err = ix.store.AdjustLikes(ctx, vid, delta); err != nil {
		return Entry{}, err
	}
	ix.cache.DeletePrefix(ctx, homeCachePrefix)
	for _, fn := range ix.hooks {
		fn(ctx, pid)
	}

	log.WithComponentFromContext(ctx, "catalog").Debug().
		Str(log.FieldEvent, "catalog.like_changed").
		Str(log.FieldVideoID, vid).
		Bool("liked", like).
		Int("likes", v.Likes).
		Msg("like state changed")
	return Entry{Video: v, Liked: like}, nil
}

func popular(all []domain.Video, search string) []domain.Video {
	vs := collapse(filterSearch(all, search), mostLiked)
	slices.SortStableFunc(vs, func(a, b domain.Video) int {
		return cmp.Or(
			cmp.Compare(b.Likes, a.Likes),
			compareTitle(a, b),
			strings.Compare(a.ID, b.ID),
		)
	})
	return vs
}

func byGenre(all []domain.Video, genre, search string) []domain.Video {
	tagged := make([]domain.Video, 0, len(all))
	for _, v := range all {
		if v.HasGenre(genre) {
			tagged = append(tagged, v)
		}
	}
	vs := collapse(filterSearch(tagged, search), earliest)
	sortByTitle(vs)
	return vs
}

// genresOf lists distinct genres (case-insensitive) in alphabetical order.
func genresOf(videos []domain.Video) []string {
	seen := make(map[string]string)
	for _, v := range videos {
		for _, g := range v.Genres {
			k := fold(g)
			if _, ok := seen[k]; !ok {
				seen[k] = g
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}

func filterSearch(videos []domain.Video, search string) []domain.Video {
	needle := fold(strings.TrimSpace(search))
	out := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if matches(v, needle) {
			out = append(out, v)
		}
	}
	return out
}

func matches(v domain.Video, foldedNeedle string) bool {
	return foldedNeedle == "" || strings.Contains(fold(v.Title), foldedNeedle)
}

func sortByTitle(vs []domain.Video) {
	slices.SortStableFunc(vs, func(a, b domain.Video) int {
		return cmp.Or(compareTitle(a, b), strings.Compare(a.ID, b.ID))
	})
}

func compareTitle(a, b domain.Video) int {
	return cmp.Or(strings.Compare(fold(a.Title), fold(b.Title)), strings.Compare(a.Title, b.Title))
}

// fold applies Unicode case folding.
func fold(s string) string {
	return cases.Fold().String(s)
}

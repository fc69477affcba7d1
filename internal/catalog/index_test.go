// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelbox/internal/cache"
	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/profile"
	"github.com/ManuGH/reelbox/internal/progress"
)

type fixture struct {
	store   *MemoryStore
	likes   *profile.MemoryLikes
	tracker *progress.Tracker
	index   *Index
	profile string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := NewMemoryStore()
	likes := profile.NewMemoryLikes()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := progress.NewTracker(progress.NewMemoryStore(), store, progress.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	return &fixture{
		store:   store,
		likes:   likes,
		tracker: tracker,
		index:   NewIndex(store, likes, tracker, Config{}, opts...),
		profile: domain.NewID(),
	}
}

func (f *fixture) movie(t *testing.T, title string, likes int, genres ...string) domain.Video {
	t.Helper()
	v := domain.Video{ID: domain.NewID(), Title: title, Likes: likes, Genres: genres, File: title + ".mp4"}
	require.NoError(t, f.store.PutVideo(context.Background(), v))
	got, err := f.store.Video(context.Background(), v.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) series(t *testing.T, title string, episodes int, genres ...string) (domain.Series, []domain.Video) {
	t.Helper()
	ctx := context.Background()
	s := domain.Series{ID: domain.NewID(), Title: title}
	require.NoError(t, f.store.PutSeries(ctx, s))
	var out []domain.Video
	for ep := 1; ep <= episodes; ep++ {
		v := domain.Video{
			ID:       domain.NewID(),
			Title:    fmt.Sprintf("%s E%02d", title, ep),
			Year:     2020,
			Genres:   genres,
			SeriesID: s.ID,
			Episode:  ep,
			Likes:    ep,
			File:     fmt.Sprintf("%s/e%02d.mkv", title, ep),
		}
		require.NoError(t, f.store.PutVideo(ctx, v))
		got, err := f.store.Video(ctx, v.ID)
		require.NoError(t, err)
		out = append(out, got)
	}
	return s, out
}

func intp(v int) *int { return &v }

func titles(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Video.Title
	}
	return out
}

func TestQueryPaginationVisitsEveryItemOnce(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 50; i++ {
		f.movie(t, fmt.Sprintf("Movie %02d", i), i%7)
	}
	ctx := context.Background()

	for _, mode := range []Mode{ModeTitle, ModePopularity} {
		seen := map[string]int{}
		offset := 0
		for {
			page, err := f.index.Query(ctx, f.profile, Query{Mode: mode, Offset: intp(offset), Limit: intp(7)})
			require.NoError(t, err)
			assert.Equal(t, 50, page.Total)
			assert.Equal(t, offset+len(page.Items), page.NextOffset)
			if len(page.Items) == 0 {
				break
			}
			for _, e := range page.Items {
				seen[e.Video.ID]++
			}
			offset = page.NextOffset
		}
		assert.Len(t, seen, 50, string(mode))
		for id, n := range seen {
			assert.Equal(t, 1, n, "video %s seen %d times in %s", id, n, mode)
		}
	}
}

func TestQueryWindow(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 100; i++ {
		f.movie(t, fmt.Sprintf("M%03d", i), 0)
	}
	ctx := context.Background()

	page, err := f.index.Query(ctx, f.profile, Query{})
	require.NoError(t, err)
	assert.Equal(t, 24, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, "M000", page.Items[0].Video.Title)

	page, err = f.index.Query(ctx, f.profile, Query{Page: intp(2), Limit: intp(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Offset)
	assert.Equal(t, "M010", page.Items[0].Video.Title)

	page, err = f.index.Query(ctx, f.profile, Query{Page: intp(3), Offset: intp(5), Limit: intp(10)})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Offset, "explicit offset wins over page")

	page, err = f.index.Query(ctx, f.profile, Query{Limit: intp(500)})
	require.NoError(t, err)
	assert.Equal(t, 60, page.Limit)
	assert.Len(t, page.Items, 60)

	page, err = f.index.Query(ctx, f.profile, Query{Offset: intp(1000)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1000, page.NextOffset)

	for _, q := range []Query{{Limit: intp(-1)}, {Offset: intp(-1)}, {Page: intp(-2)}} {
		_, err := f.index.Query(ctx, f.profile, q)
		assert.True(t, errors.Is(err, domain.ErrValidation), "%+v", q)
	}

	_, err = f.index.Query(ctx, "bogus", Query{})
	assert.True(t, errors.Is(err, domain.ErrInvalidIdentifier))
}

func TestSeriesCollapsesInFeeds(t *testing.T) {
	f := newFixture(t)
	_, eps := f.series(t, "Space Patrol", 5, "sci-fi")
	f.movie(t, "Asteroid", 3, "sci-fi")
	f.movie(t, "Comet", 100, "drama")
	ctx := context.Background()

	page, err := f.index.Query(ctx, f.profile, Query{Mode: ModeGenre, Genre: "Sci-Fi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Asteroid", "Space Patrol E01"}, titles(page.Items))
	assert.Equal(t, 2, page.Total)

	page, err = f.index.Query(ctx, f.profile, Query{Mode: ModePopularity})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"Comet", "Space Patrol E05", "Asteroid"}, titles(page.Items))
	assert.Equal(t, eps[4].ID, page.Items[1].Video.ID, "most liked episode represents the series")

	page, err = f.index.Query(ctx, f.profile, Query{Mode: ModeTitle})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total, "title listing is flat")

	_, err = f.index.Query(ctx, f.profile, Query{Mode: ModeGenre})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSearchUsesCaseFolding(t *testing.T) {
	f := newFixture(t)
	f.movie(t, "Die Straße", 0)
	f.movie(t, "Harbor", 0)

	page, err := f.index.Query(context.Background(), f.profile, Query{Search: "STRAßE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Die Straße"}, titles(page.Items))
}

func TestContinueWatching(t *testing.T) {
	f := newFixture(t)
	a := f.movie(t, "Alpha", 0)
	b := f.movie(t, "Bravo", 0)
	c := f.movie(t, "Charlie", 0)
	d := f.movie(t, "Delta", 0)
	ctx := context.Background()

	for _, r := range []struct {
		v        domain.Video
		pos, dur float64
	}{{a, 10, 100}, {b, 0, 100}, {c, 99, 100}, {d, 98, 100}} {
		_, err := f.tracker.Record(ctx, f.profile, r.v.ID, r.pos, r.dur)
		require.NoError(t, err)
	}

	page, err := f.index.Query(ctx, f.profile, Query{Mode: ModeContinue})
	require.NoError(t, err)
	assert.Equal(t, []string{"Delta", "Alpha"}, titles(page.Items))
	require.NotNil(t, page.Items[0].Progress)
	assert.Equal(t, 98.0, page.Items[0].Progress.Position)

	page, err = f.index.Query(ctx, f.profile, Query{Mode: ModeContinue, Search: "alp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha"}, titles(page.Items))
	assert.Equal(t, 1, page.Total)
}

type staticProgress []domain.Progress

func (s staticProgress) InProgress(context.Context, string) ([]domain.Progress, error) {
	return s, nil
}

func (s staticProgress) History(context.Context, string) ([]domain.Progress, error) {
	return s, nil
}

func TestContinueWatchingSkipsDanglingRecords(t *testing.T) {
	store := NewMemoryStore()
	v := domain.Video{ID: domain.NewID(), Title: "Kept", File: "k.mp4"}
	require.NoError(t, store.PutVideo(context.Background(), v))
	src := staticProgress{
		{VideoID: domain.NewID(), Position: 5, Duration: 10},
		{VideoID: v.ID, Position: 5, Duration: 10},
	}
	ix := NewIndex(store, profile.NewMemoryLikes(), src, Config{})

	page, err := ix.Query(context.Background(), domain.NewID(), Query{Mode: ModeContinue})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kept"}, titles(page.Items))
}

func TestNext(t *testing.T) {
	f := newFixture(t)
	_, eps := f.series(t, "Show", 3)
	b := f.movie(t, "Bravo", 0)
	a := f.movie(t, "alpha", 0)
	c := f.movie(t, "Charlie", 0)
	ctx := context.Background()

	next, err := f.index.Next(ctx, eps[0].ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, eps[1].ID, next.ID)

	next, err = f.index.Next(ctx, eps[2].ID)
	require.NoError(t, err)
	assert.Nil(t, next, "last episode has no successor")

	next, err = f.index.Next(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, next.ID)

	next, err = f.index.Next(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, next.ID, "movies wrap around")

	_, err = f.index.Next(ctx, domain.NewID())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNextOnlyMovie(t *testing.T) {
	f := newFixture(t)
	m := f.movie(t, "Solo", 0)
	f.series(t, "Show", 2)

	next, err := f.index.Next(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestLikeUnlikeIsIdempotent(t *testing.T) {
	var hooked []string
	f := newFixture(t, WithLikeHook(func(_ context.Context, profileID string) {
		hooked = append(hooked, profileID)
	}))
	v := f.movie(t, "Film", 0)
	ctx := context.Background()

	e, err := f.index.Like(ctx, f.profile, v.ID)
	require.NoError(t, err)
	assert.True(t, e.Liked)
	assert.Equal(t, 1, e.Video.Likes)

	e, err = f.index.Like(ctx, f.profile, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Video.Likes, "repeated like does not count twice")

	e, err = f.index.Unlike(ctx, f.profile, v.ID)
	require.NoError(t, err)
	assert.False(t, e.Liked)
	assert.Equal(t, 0, e.Video.Likes)

	e, err = f.index.Unlike(ctx, f.profile, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Video.Likes)

	assert.Equal(t, []string{f.profile, f.profile}, hooked)

	_, err = f.index.Like(ctx, f.profile, domain.NewID())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLikedMarker(t *testing.T) {
	f := newFixture(t)
	v := f.movie(t, "Film", 0)
	f.movie(t, "Other", 0)
	ctx := context.Background()
	_, err := f.index.Like(ctx, f.profile, v.ID)
	require.NoError(t, err)

	page, err := f.index.Query(ctx, f.profile, Query{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].Liked)
	assert.False(t, page.Items[1].Liked)
}

func TestHomeSectionsAndCache(t *testing.T) {
	c := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	f := newFixture(t, WithCache(c))
	f.index.cfg.HomeCacheTTL = time.Minute

	f.series(t, "Space Patrol", 3, "sci-fi")
	dune := f.movie(t, "Dune", 50, "sci-fi", "drama")
	f.movie(t, "Laughs", 2, "comedy")
	ctx := context.Background()

	_, err := f.tracker.Record(ctx, f.profile, dune.ID, 10, 100)
	require.NoError(t, err)

	h, err := f.index.Home(ctx, f.profile, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dune"}, titles(h.Continue))
	assert.Equal(t, []string{"Dune", "Space Patrol E03", "Laughs"}, titles(h.Popular))

	var genres []string
	for _, g := range h.Genres {
		genres = append(genres, g.Genre)
	}
	assert.Equal(t, []string{"comedy", "drama", "sci-fi"}, genres)
	assert.Equal(t, []string{"Dune", "Space Patrol E01"}, titles(h.Genres[2].Items))

	_, err = f.index.Home(ctx, f.profile, "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Stats().Hits, "second call served from cache")

	_, err = f.index.Like(ctx, f.profile, dune.ID)
	require.NoError(t, err)
	h, err = f.index.Home(ctx, f.profile, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 51, h.Popular[0].Video.Likes, "like invalidates cached sections")
	assert.True(t, h.Popular[0].Liked)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw   string
		mode  Mode
		genre string
		err   bool
	}{
		{"", ModeTitle, "", false},
		{"Popularity", ModePopularity, "", false},
		{"genre:Film Noir", ModeGenre, "Film Noir", false},
		{"GENRE: drama", ModeGenre, "drama", false},
		{"continue", ModeContinue, "", false},
		{"home", ModeHome, "", false},
		{"shuffle", "", "", true},
	}
	for _, tt := range tests {
		mode, genre, err := ParseMode(tt.raw)
		if tt.err {
			assert.True(t, errors.Is(err, domain.ErrValidation), tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.mode, mode, tt.raw)
		assert.Equal(t, tt.genre, genre, tt.raw)
	}
}

type countingLikes struct {
	profile.Likes
	reads atomic.Int32
}

func (c *countingLikes) LikedVideoIDs(ctx context.Context, profileID string) ([]string, error) {
	c.reads.Add(1)
	return c.Likes.LikedVideoIDs(ctx, profileID)
}

type countingHistory struct {
	ProgressSource
	reads atomic.Int32
}

func (c *countingHistory) History(ctx context.Context, profileID string) ([]domain.Progress, error) {
	c.reads.Add(1)
	return c.ProgressSource.History(ctx, profileID)
}

func TestHomeReadsViewerStateOnce(t *testing.T) {
	f := newFixture(t)
	f.movie(t, "Alien", 4, "horror", "sci-fi")
	f.movie(t, "Laughs", 2, "comedy")
	f.movie(t, "Noir", 1, "crime", "drama")
	f.series(t, "Space Patrol", 2, "sci-fi", "western")

	likes := &countingLikes{Likes: f.likes}
	history := &countingHistory{ProgressSource: f.tracker}
	ix := NewIndex(f.store, likes, history, Config{})

	h, err := ix.Home(context.Background(), f.profile, "", nil)
	require.NoError(t, err)
	require.Len(t, h.Genres, 6)
	assert.Equal(t, int32(1), likes.reads.Load())
	assert.Equal(t, int32(1), history.reads.Load())
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.sqlite"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sq, err := NewSqliteStore(context.Background(), db)
	require.NoError(t, err)
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestStoreContract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := domain.Series{ID: domain.NewID(), Title: "Show"}
			require.NoError(t, store.PutSeries(ctx, s))

			movie := domain.Video{ID: domain.NewID(), Title: "Film", Year: 1999, Genres: []string{" drama", "crime", "drama"}, Likes: 2, Rating: 7.5, File: "film.mp4"}
			ep := domain.Video{ID: domain.NewID(), Title: "Pilot", SeriesID: s.ID, Episode: 1, File: "show/1.mkv"}
			require.NoError(t, store.PutVideo(ctx, movie))
			require.NoError(t, store.PutVideo(ctx, ep))

			got, err := store.Video(ctx, movie.ID)
			require.NoError(t, err)
			want := movie
			want.Kind = domain.KindMovie
			want.Genres = []string{"crime", "drama"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("video mismatch (-want +got):\n%s", diff)
			}

			gotEp, err := store.Video(ctx, ep.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.KindEpisode, gotEp.Kind)
			assert.Equal(t, s.ID, gotEp.SeriesID)

			all, err := store.Videos(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, movie.ID, all[0].ID, "insertion order")

			movie.Title = "Film (Director's Cut)"
			require.NoError(t, store.PutVideo(ctx, movie))
			all, err = store.Videos(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2, "update does not duplicate")
			assert.Equal(t, "Film (Director's Cut)", all[0].Title)

			v, err := store.AdjustLikes(ctx, movie.ID, -5)
			require.NoError(t, err)
			assert.Equal(t, 0, v.Likes, "likes floor at zero")
			v, err = store.AdjustLikes(ctx, movie.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, 1, v.Likes)

			_, err = store.AdjustLikes(ctx, domain.NewID(), 1)
			assert.True(t, errors.Is(err, domain.ErrNotFound))
			_, err = store.Video(ctx, domain.NewID())
			assert.True(t, errors.Is(err, domain.ErrNotFound))
			_, err = store.Series(ctx, domain.NewID())
			assert.True(t, errors.Is(err, domain.ErrNotFound))

			orphan := domain.Video{ID: domain.NewID(), Title: "Lost", SeriesID: domain.NewID(), Episode: 1, File: "x.mp4"}
			assert.True(t, errors.Is(store.PutVideo(ctx, orphan), domain.ErrNotFound))

			bad := domain.Video{ID: domain.NewID(), Title: "Bad", Kind: domain.KindMovie, Episode: 3, File: "x.mp4"}
			assert.True(t, errors.Is(store.PutVideo(ctx, bad), domain.ErrValidation))
		})
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package profile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
)

func adapters(t *testing.T) map[string]Likes {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.sqlite"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sq, err := NewSqliteLikes(context.Background(), db)
	require.NoError(t, err)
	return map[string]Likes{"memory": NewMemoryLikes(), "sqlite": sq}
}

func TestLikesContract(t *testing.T) {
	for name, likes := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			changed, err := likes.AddLike(ctx, "p1", "b")
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = likes.AddLike(ctx, "p1", "a")
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = likes.AddLike(ctx, "p1", "b")
			require.NoError(t, err)
			assert.False(t, changed, "second like is a no-op")

			ids, err := likes.LikedVideoIDs(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "a"}, ids, "like order is preserved")

			changed, err = likes.RemoveLike(ctx, "p1", "b")
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = likes.RemoveLike(ctx, "p1", "b")
			require.NoError(t, err)
			assert.False(t, changed)

			ids, err = likes.LikedVideoIDs(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, ids)

			ids, err = likes.LikedVideoIDs(ctx, "p2")
			require.NoError(t, err)
			assert.Empty(t, ids)
		})
	}
}

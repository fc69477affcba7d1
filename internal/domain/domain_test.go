// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressInProgress(t *testing.T) {
	tests := []struct {
		name     string
		position float64
		duration float64
		want     bool
	}{
		{"not started", 0, 100, false},
		{"mid", 50, 100, true},
		{"just below threshold", 98, 100, true},
		{"at threshold", 99, 100, false},
		{"finished", 100, 100, false},
		{"unknown duration", 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Progress{Position: tt.position, Duration: tt.duration}
			assert.Equal(t, tt.want, p.InProgress())
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 3F2504E0-4F89-11D3-9A0C-0305E82C3301 ")
	require.NoError(t, err)
	assert.Equal(t, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", id)

	for _, raw := range []string{"", "abc", "../etc/passwd", "3f2504e0-4f89-11d3-9a0c"} {
		_, err := ParseID(raw)
		assert.Truef(t, errors.Is(err, ErrInvalidIdentifier), "raw=%q err=%v", raw, err)
	}
}

func TestVideoValidate(t *testing.T) {
	series := NewID()

	ep := Video{ID: NewID(), Title: "Pilot", SeriesID: series, Episode: 1, Genres: []string{" Drama", "Comedy", "Drama"}}
	require.NoError(t, ep.Validate())
	assert.Equal(t, KindEpisode, ep.Kind)
	assert.Equal(t, []string{"Comedy", "Drama"}, ep.Genres)
	assert.Equal(t, series, ep.SeriesKey())

	movie := Video{ID: NewID(), Title: "Heat", Likes: -3}
	require.NoError(t, movie.Validate())
	assert.Equal(t, KindMovie, movie.Kind)
	assert.Equal(t, 0, movie.Likes)
	assert.Equal(t, movie.ID, movie.SeriesKey())

	bad := Video{ID: NewID(), Title: "Orphan", Kind: KindEpisode, SeriesID: series}
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	mixed := Video{ID: NewID(), Title: "Mixed", Kind: KindMovie, Episode: 2}
	assert.ErrorIs(t, mixed.Validate(), ErrValidation)

	noID := Video{ID: "nope", Title: "x"}
	assert.ErrorIs(t, noID.Validate(), ErrInvalidIdentifier)
}

func TestErrorClass(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", ErrorClass(errors.Join(errors.New("ctx"), ErrNotFound)))
	assert.Equal(t, "RANGE_NOT_SATISFIABLE", ErrorClass(ErrRangeNotSatisfiable))
	assert.Equal(t, "INTERNAL_ERROR", ErrorClass(errors.New("disk")))
	assert.Equal(t, "", ErrorClass(nil))
}

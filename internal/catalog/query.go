// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"fmt"
	"strings"

	"github.com/ManuGH/reelbox/internal/domain"
)

// Mode selects the ordering of a catalog query.
type Mode string

const (
	ModeTitle      Mode = "title"
	ModePopularity Mode = "popularity"
	ModeGenre      Mode = "genre"
	ModeContinue   Mode = "continue"
	ModeHome       Mode = "home"
)

// ParseMode accepts "title", "popularity", "continue", "home", "genre" and
// the compact "genre:<name>" form. An empty string selects title order.
func ParseMode(raw string) (Mode, string, error) {
	raw = strings.TrimSpace(raw)
	const genrePrefix = "genre:"
	if len(raw) >= len(genrePrefix) && strings.EqualFold(raw[:len(genrePrefix)], genrePrefix) {
		return ModeGenre, strings.TrimSpace(raw[len(genrePrefix):]), nil
	}
	switch m := Mode(strings.ToLower(raw)); m {
	case "":
		return ModeTitle, "", nil
	case ModeTitle, ModePopularity, ModeGenre, ModeContinue, ModeHome:
		return m, "", nil
	default:
		return "", "", fmt.Errorf("%w: unknown catalog mode %q", domain.ErrValidation, raw)
	}
}

// Query is one catalog request. Page is 1-based; Offset wins over Page when
// both are set. Nil fields take their defaults.
type Query struct {
	Mode   Mode
	Genre  string
	Search string
	Page   *int
	Offset *int
	Limit  *int
}

// Entry is a video decorated with the viewer's markers.
type Entry struct {
	Video    domain.Video     `json:"video"`
	Liked    bool             `json:"liked"`
	Progress *domain.Progress `json:"progress,omitempty"`
}

// Page is one window of a catalog listing.
type Page struct {
	Items      []Entry `json:"items"`
	Total      int     `json:"total"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
	NextOffset int     `json:"nextOffset"`
}

// window resolves offset and limit. Negative inputs are rejected, the limit
// is clamped to [1, maxLimit].
func window(q Query, defaultLimit, maxLimit int) (offset, limit int, err error) {
	limit = defaultLimit
	if q.Limit != nil {
		if *q.Limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit must not be negative", domain.ErrValidation)
		}
		limit = *q.Limit
	}
	limit = min(max(limit, 1), maxLimit)

	switch {
	case q.Offset != nil:
		if *q.Offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
		}
		offset = *q.Offset
	case q.Page != nil:
		if *q.Page < 0 {
			return 0, 0, fmt.Errorf("%w: page must not be negative", domain.ErrValidation)
		}
		offset = max(*q.Page-1, 0) * limit
	}
	return offset, limit, nil
}

// paginate cuts [offset, offset+limit) out of items.
func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package domain holds the catalog and watch-state model shared by the
// streaming, progress, catalog and recommendation components.
package domain

import (
	"fmt"
	"slices"
	"strings"
)

// VideoKind distinguishes standalone movies from series episodes.
type VideoKind string

const (
	KindMovie   VideoKind = "movie"
	KindEpisode VideoKind = "episode"
)

// Video is a playable catalog entry.
type Video struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Year        int       `json:"year,omitempty" yaml:"year"`
	Genres      []string  `json:"genres" yaml:"genres"`
	Poster      string    `json:"poster,omitempty" yaml:"poster"`
	Likes       int       `json:"likes" yaml:"likes"`
	Rating      float64   `json:"rating,omitempty" yaml:"rating"`
	File        string    `json:"-" yaml:"file"`
	Kind        VideoKind `json:"kind" yaml:"kind"`
	SeriesID    string    `json:"seriesId,omitempty" yaml:"seriesId"`
	Episode     int       `json:"episode,omitempty" yaml:"episode"`
}

// Series groups episodes by back-reference.
type Series struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// IsEpisode reports whether v belongs to a series.
func (v Video) IsEpisode() bool {
	return v.Kind == KindEpisode
}

// SeriesKey is the grouping key for series collapsing: the series id for
// episodes, the video's own id for movies.
func (v Video) SeriesKey() string {
	if v.IsEpisode() && v.SeriesID != "" {
		return v.SeriesID
	}
	return v.ID
}

// HasGenre reports whether v is tagged with genre (case-insensitive).
func (v Video) HasGenre(genre string) bool {
	for _, g := range v.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// Validate checks the kind/series/episode coupling and normalizes genres.
func (v *Video) Validate() error {
	id, err := ParseID(v.ID)
	if err != nil {
		return err
	}
	v.ID = id
	if strings.TrimSpace(v.Title) == "" {
		return fmt.Errorf("%w: video %s has no title", ErrValidation, v.ID)
	}
	if v.Likes < 0 {
		v.Likes = 0
	}
	if v.Kind == "" {
		if v.SeriesID != "" {
			v.Kind = KindEpisode
		} else {
			v.Kind = KindMovie
		}
	}
	switch v.Kind {
	case KindMovie:
		if v.SeriesID != "" || v.Episode != 0 {
			return fmt.Errorf("%w: movie %s carries series fields", ErrValidation, v.ID)
		}
	case KindEpisode:
		sid, err := ParseID(v.SeriesID)
		if err != nil {
			return fmt.Errorf("episode %s: %w", v.ID, err)
		}
		v.SeriesID = sid
		if v.Episode <= 0 {
			return fmt.Errorf("%w: episode %s needs a positive episode number", ErrValidation, v.ID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrValidation, v.Kind)
	}
	v.Genres = NormalizeGenres(v.Genres)
	return nil
}

// NormalizeGenres trims, de-duplicates and sorts genre tags.
func NormalizeGenres(in []string) []string {
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		out = append(out, g)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

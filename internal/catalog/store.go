// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/reelbox/internal/domain"
)

// Store persists videos and series.
type Store interface {
	Video(ctx context.Context, id string) (domain.Video, error)
	Series(ctx context.Context, id string) (domain.Series, error)
	// Videos returns the full catalog in insertion order.
	Videos(ctx context.Context) ([]domain.Video, error)
	PutVideo(ctx context.Context, v domain.Video) error
	PutSeries(ctx context.Context, s domain.Series) error
	// AdjustLikes adds delta to the like count, floored at zero, and
	// returns the updated video.
	AdjustLikes(ctx context.Context, id string, delta int) (domain.Video, error)
	Close() error
}

// MemoryStore implements Store in memory (tests and the demo seed).
type MemoryStore struct {
	mu     sync.RWMutex
	order  []string
	videos map[string]domain.Video
	series map[string]domain.Series
}

// NewMemoryStore creates an empty catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos: make(map[string]domain.Video),
		series: make(map[string]domain.Series),
	}
}

func (s *MemoryStore) Video(_ context.Context, id string) (domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return domain.Video{}, fmt.Errorf("%w: video %s", domain.ErrNotFound, id)
	}
	return cloneVideo(v), nil
}

func (s *MemoryStore) Series(_ context.Context, id string) (domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.series[id]
	if !ok {
		return domain.Series{}, fmt.Errorf("%w: series %s", domain.ErrNotFound, id)
	}
	return sr, nil
}

func (s *MemoryStore) Videos(_ context.Context) ([]domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Video, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneVideo(s.videos[id]))
	}
	return out, nil
}

func (s *MemoryStore) PutVideo(_ context.Context, v domain.Video) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.IsEpisode() {
		if _, ok := s.series[v.SeriesID]; !ok {
			return fmt.Errorf("%w: series %s", domain.ErrNotFound, v.SeriesID)
		}
	}
	if _, ok := s.videos[v.ID]; !ok {
		s.order = append(s.order, v.ID)
	}
	s.videos[v.ID] = cloneVideo(v)
	return nil
}

func (s *MemoryStore) PutSeries(_ context.Context, sr domain.Series) error {
	id, err := domain.ParseID(sr.ID)
	if err != nil {
		return err
	}
	sr.ID = id
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[id] = sr
	return nil
}

func (s *MemoryStore) AdjustLikes(_ context.Context, id string, delta int) (domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return domain.Video{}, fmt.Errorf("%w: video %s", domain.ErrNotFound, id)
	}
	v.Likes = max(v.Likes+delta, 0)
	s.videos[id] = v
	return cloneVideo(v), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneVideo(v domain.Video) domain.Video {
	v.Genres = append([]string(nil), v.Genres...)
	return v
}

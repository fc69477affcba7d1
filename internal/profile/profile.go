// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package profile adapts the external profile service: the set of videos a
// profile has liked.
package profile

import (
	"context"
	"sync"
)

// Likes is the profile collaborator consumed by the catalog and the
// recommender.
type Likes interface {
	// LikedVideoIDs returns liked video ids in the order they were liked.
	LikedVideoIDs(ctx context.Context, profileID string) ([]string, error)
	// AddLike reports whether the like was new.
	AddLike(ctx context.Context, profileID, videoID string) (bool, error)
	// RemoveLike reports whether a like was removed.
	RemoveLike(ctx context.Context, profileID, videoID string) (bool, error)
}

// MemoryLikes implements Likes in memory.
type MemoryLikes struct {
	mu    sync.RWMutex
	liked map[string][]string
}

// NewMemoryLikes creates an empty in-memory adapter.
func NewMemoryLikes() *MemoryLikes {
	return &MemoryLikes{liked: make(map[string][]string)}
}

func (m *MemoryLikes) LikedVideoIDs(_ context.Context, profileID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.liked[profileID]...), nil
}

func (m *MemoryLikes) AddLike(_ context.Context, profileID, videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.liked[profileID] {
		if id == videoID {
			return false, nil
		}
	}
	m.liked[profileID] = append(m.liked[profileID], videoID)
	return true, nil
}

func (m *MemoryLikes) RemoveLike(_ context.Context, profileID, videoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.liked[profileID]
	for i, id := range ids {
		if id == videoID {
			m.liked[profileID] = append(ids[:i:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

var _ Likes = (*MemoryLikes)(nil)

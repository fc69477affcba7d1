// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ManuGH/reelbox/internal/domain"
)

// Store persists one progress record per (profile, video).
type Store interface {
	// Put inserts or replaces the record for (p.ProfileID, p.VideoID).
	Put(ctx context.Context, p domain.Progress) error
	// Get returns the record and whether it exists.
	Get(ctx context.Context, profileID, videoID string) (domain.Progress, bool, error)
	// List returns all records of a profile, most recently updated first.
	List(ctx context.Context, profileID string) ([]domain.Progress, error)
	// DeleteProfile removes every record of a profile.
	DeleteProfile(ctx context.Context, profileID string) (int64, error)
	Close() error
}

// NewStore creates a progress store for backend. For sqlite, target is the
// database file (or a directory, which gets progress.sqlite); an empty
// target yields a memory store. For postgres, target is the DSN. For
// badger, target is the data directory.
func NewStore(backend, target string) (Store, error) {
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		if target == "" {
			return NewMemoryStore(), nil
		}
		if filepath.Ext(target) == "" {
			target = filepath.Join(target, "progress.sqlite")
		}
		return NewSqliteStore(target)
	case "postgres":
		if target == "" {
			return nil, fmt.Errorf("postgres progress backend requires a DSN")
		}
		return NewPostgresStore(context.Background(), target)
	case "badger":
		if target == "" {
			return nil, fmt.Errorf("badger progress backend requires a directory")
		}
		return OpenBadgerStore(target)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown progress store backend: %s (supported: sqlite, postgres, badger, memory)", backend)
	}
}

// MemoryStore implements Store using a map (thread-safe).
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.Progress
}

// NewMemoryStore creates an in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]domain.Progress)}
}

func (s *MemoryStore) Put(_ context.Context, p domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byVideo, ok := s.data[p.ProfileID]
	if !ok {
		byVideo = make(map[string]domain.Progress)
		s.data[p.ProfileID] = byVideo
	}
	byVideo[p.VideoID] = p
	return nil
}

func (s *MemoryStore) Get(_ context.Context, profileID, videoID string) (domain.Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[profileID][videoID]
	return p, ok, nil
}

func (s *MemoryStore) List(_ context.Context, profileID string) ([]domain.Progress, error) {
	s.mu.RLock()
	out := make([]domain.Progress, 0, len(s.data[profileID]))
	for _, p := range s.data[profileID] {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sortRecent(out)
	return out, nil
}

func (s *MemoryStore) DeleteProfile(_ context.Context, profileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data[profileID]))
	delete(s.data, profileID)
	return n, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sortRecent orders by UpdatedAt desc with video id as tiebreak, matching
// the ORDER BY of the SQL stores.
func sortRecent(ps []domain.Progress) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].UpdatedAt.Equal(ps[j].UpdatedAt) {
			return ps[i].UpdatedAt.After(ps[j].UpdatedAt)
		}
		return ps[i].VideoID < ps[j].VideoID
	})
}

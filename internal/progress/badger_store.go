// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/reelbox/internal/domain"
)

// BadgerStore keeps one JSON record per key "prog:<profile>:<video>".
// Ids never contain ':', so a profile's records share the "prog:<profile>:" prefix.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger directory.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("progress store: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func progressKey(profileID, videoID string) []byte {
	return []byte("prog:" + profileID + ":" + videoID)
}

func profilePrefix(profileID string) []byte {
	return []byte("prog:" + profileID + ":")
}

func (s *BadgerStore) Put(_ context.Context, p domain.Progress) error {
	buf, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(progressKey(p.ProfileID, p.VideoID), buf)
	})
}

func (s *BadgerStore) Get(_ context.Context, profileID, videoID string) (domain.Progress, bool, error) {
	var out domain.Progress
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(progressKey(profileID, videoID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("progress store: get: %w", err)
	}
	return out, true, nil
}

func (s *BadgerStore) List(_ context.Context, profileID string) ([]domain.Progress, error) {
	var out []domain.Progress
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := profilePrefix(profileID)
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p domain.Progress
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("progress store: list: %w", err)
	}
	sortRecent(out)
	return out, nil
}

func (s *BadgerStore) DeleteProfile(_ context.Context, profileID string) (int64, error) {
	var n int64
	err := s.db.Update(func(txn *badger.Txn) error {
		prefix := profilePrefix(profileID)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		n = int64(len(keys))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("progress store: delete profile: %w", err)
	}
	return n, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

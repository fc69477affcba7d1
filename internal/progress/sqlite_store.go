// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS viewing_sessions (
		profile_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		position_seconds REAL NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		updated_at_ms INTEGER NOT NULL,
		PRIMARY KEY (profile_id, video_id)
	);
	CREATE INDEX IF NOT EXISTS idx_viewing_sessions_recent
		ON viewing_sessions(profile_id, updated_at_ms DESC);`,
}

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB    *sql.DB
	owned bool
}

// NewSqliteStore opens (and migrates) a dedicated progress database.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s, err := NewSqliteStoreDB(context.Background(), db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSqliteStoreDB migrates the progress schema into a shared database.
// Close leaves a shared db open.
func NewSqliteStoreDB(ctx context.Context, db *sql.DB) (*SqliteStore, error) {
	if err := sqlite.Migrate(ctx, db, "progress", sqliteMigrations); err != nil {
		return nil, fmt.Errorf("progress store: migration failed: %w", err)
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) Put(ctx context.Context, p domain.Progress) error {
	query := `
	INSERT INTO viewing_sessions (profile_id, video_id, position_seconds, duration_seconds, updated_at_ms)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(profile_id, video_id) DO UPDATE SET
		position_seconds = excluded.position_seconds,
		duration_seconds = excluded.duration_seconds,
		updated_at_ms = excluded.updated_at_ms
	`
	_, err := s.DB.ExecContext(ctx, query, p.ProfileID, p.VideoID, p.Position, p.Duration, p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("progress store: upsert: %w", err)
	}
	return nil
}

func (s *SqliteStore) Get(ctx context.Context, profileID, videoID string) (domain.Progress, bool, error) {
	query := `SELECT position_seconds, duration_seconds, updated_at_ms FROM viewing_sessions WHERE profile_id = ? AND video_id = ?`
	p := domain.Progress{ProfileID: profileID, VideoID: videoID}
	var updatedMS int64
	err := s.DB.QueryRowContext(ctx, query, profileID, videoID).Scan(&p.Position, &p.Duration, &updatedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("progress store: get: %w", err)
	}
	p.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return p, true, nil
}

func (s *SqliteStore) List(ctx context.Context, profileID string) ([]domain.Progress, error) {
	query := `
	SELECT video_id, position_seconds, duration_seconds, updated_at_ms
	FROM viewing_sessions
	WHERE profile_id = ?
	ORDER BY updated_at_ms DESC, video_id ASC`
	rows, err := s.DB.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("progress store: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Progress
	for rows.Next() {
		p := domain.Progress{ProfileID: profileID}
		var updatedMS int64
		if err := rows.Scan(&p.VideoID, &p.Position, &p.Duration, &updatedMS); err != nil {
			return nil, fmt.Errorf("progress store: scan: %w", err)
		}
		p.UpdatedAt = time.UnixMilli(updatedMS).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SqliteStore) DeleteProfile(ctx context.Context, profileID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM viewing_sessions WHERE profile_id = ?`, profileID)
	if err != nil {
		return 0, fmt.Errorf("progress store: delete profile: %w", err)
	}
	return res.RowsAffected()
}

func (s *SqliteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.DB.Close()
}

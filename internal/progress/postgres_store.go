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

	_ "github.com/lib/pq"

	"github.com/ManuGH/reelbox/internal/domain"
)

// PostgresStore implements Store on PostgreSQL for deployments that share
// watch state between several instances.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects with dsn and creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("progress store: open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("progress store: ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS viewing_sessions (
			profile_id TEXT NOT NULL,
			video_id TEXT NOT NULL,
			position_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (profile_id, video_id)
		);
		CREATE INDEX IF NOT EXISTS idx_viewing_sessions_recent
			ON viewing_sessions (profile_id, updated_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("progress store: init postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, p domain.Progress) error {
	query := `
		INSERT INTO viewing_sessions (profile_id, video_id, position_seconds, duration_seconds, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (profile_id, video_id) DO UPDATE SET
			position_seconds = EXCLUDED.position_seconds,
			duration_seconds = EXCLUDED.duration_seconds,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, p.ProfileID, p.VideoID, p.Position, p.Duration, p.UpdatedAt); err != nil {
		return fmt.Errorf("progress store: upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, profileID, videoID string) (domain.Progress, bool, error) {
	query := `
		SELECT position_seconds, duration_seconds, updated_at
		FROM viewing_sessions
		WHERE profile_id = $1 AND video_id = $2
	`
	p := domain.Progress{ProfileID: profileID, VideoID: videoID}
	err := s.db.QueryRowContext(ctx, query, profileID, videoID).Scan(&p.Position, &p.Duration, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Progress{}, false, nil
	}
	if err != nil {
		return domain.Progress{}, false, fmt.Errorf("progress store: get: %w", err)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, true, nil
}

func (s *PostgresStore) List(ctx context.Context, profileID string) ([]domain.Progress, error) {
	query := `
		SELECT video_id, position_seconds, duration_seconds, updated_at
		FROM viewing_sessions
		WHERE profile_id = $1
		ORDER BY updated_at DESC, video_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("progress store: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Progress
	for rows.Next() {
		p := domain.Progress{ProfileID: profileID}
		if err := rows.Scan(&p.VideoID, &p.Position, &p.Duration, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("progress store: scan: %w", err)
		}
		p.UpdatedAt = p.UpdatedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, profileID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM viewing_sessions WHERE profile_id = $1`, profileID)
	if err != nil {
		return 0, fmt.Errorf("progress store: delete profile: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

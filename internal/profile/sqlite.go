// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package profile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS profile_likes (
		profile_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		liked_at_ms INTEGER NOT NULL,
		PRIMARY KEY (profile_id, video_id)
	);
	CREATE INDEX IF NOT EXISTS idx_profile_likes_order
		ON profile_likes(profile_id, liked_at_ms);`,
}

// SqliteLikes stores likes in the shared catalog database.
type SqliteLikes struct {
	db *sql.DB
}

// NewSqliteLikes migrates the profile_likes table into db.
func NewSqliteLikes(ctx context.Context, db *sql.DB) (*SqliteLikes, error) {
	if err := sqlite.Migrate(ctx, db, "profile", sqliteMigrations); err != nil {
		return nil, fmt.Errorf("profile likes: migration failed: %w", err)
	}
	return &SqliteLikes{db: db}, nil
}

func (s *SqliteLikes) LikedVideoIDs(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id FROM profile_likes
		WHERE profile_id = ?
		ORDER BY liked_at_ms ASC, rowid ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("profile likes: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("profile likes: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SqliteLikes) AddLike(ctx context.Context, profileID, videoID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_likes (profile_id, video_id, liked_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(profile_id, video_id) DO NOTHING`,
		profileID, videoID, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("profile likes: add: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SqliteLikes) RemoveLike(ctx context.Context, profileID, videoID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profile_likes WHERE profile_id = ? AND video_id = ?`, profileID, videoID)
	if err != nil {
		return false, fmt.Errorf("profile likes: remove: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

var _ Likes = (*SqliteLikes)(nil)

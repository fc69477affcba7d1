// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS series (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS videos (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		genres TEXT NOT NULL DEFAULT '[]',
		poster TEXT NOT NULL DEFAULT '',
		likes INTEGER NOT NULL DEFAULT 0 CHECK(likes >= 0),
		rating REAL NOT NULL DEFAULT 0,
		file TEXT NOT NULL,
		kind TEXT NOT NULL CHECK(kind IN ('movie', 'episode')),
		series_id TEXT REFERENCES series(id),
		episode INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_videos_series ON videos(series_id, episode);`,
}

const videoColumns = `id, title, description, year, genres, poster, likes, rating, file, kind, series_id, episode`

// SqliteStore implements Store on the catalog database.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore migrates the catalog schema into db. The caller owns db.
func NewSqliteStore(ctx context.Context, db *sql.DB) (*SqliteStore, error) {
	if err := sqlite.Migrate(ctx, db, "catalog", sqliteMigrations); err != nil {
		return nil, fmt.Errorf("catalog store: migration failed: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (domain.Video, error) {
	var (
		v        domain.Video
		genres   string
		kind     string
		seriesID sql.NullString
	)
	if err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Year, &genres, &v.Poster,
		&v.Likes, &v.Rating, &v.File, &kind, &seriesID, &v.Episode); err != nil {
		return domain.Video{}, err
	}
	if err := json.Unmarshal([]byte(genres), &v.Genres); err != nil {
		return domain.Video{}, fmt.Errorf("decode genres of %s: %w", v.ID, err)
	}
	v.Kind = domain.VideoKind(kind)
	v.SeriesID = seriesID.String
	return v, nil
}

func (s *SqliteStore) Video(ctx context.Context, id string) (domain.Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Video{}, fmt.Errorf("%w: video %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Video{}, fmt.Errorf("catalog store: get video: %w", err)
	}
	return v, nil
}

func (s *SqliteStore) Series(ctx context.Context, id string) (domain.Series, error) {
	var sr domain.Series
	err := s.db.QueryRowContext(ctx, `SELECT id, title, description FROM series WHERE id = ?`, id).
		Scan(&sr.ID, &sr.Title, &sr.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Series{}, fmt.Errorf("%w: series %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Series{}, fmt.Errorf("catalog store: get series: %w", err)
	}
	return sr, nil
}

func (s *SqliteStore) Videos(ctx context.Context) ([]domain.Video, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("catalog store: list videos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog store: scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SqliteStore) PutVideo(ctx context.Context, v domain.Video) error {
	if err := v.Validate(); err != nil {
		return err
	}
	genres, err := json.Marshal(v.Genres)
	if err != nil {
		return fmt.Errorf("catalog store: encode genres: %w", err)
	}
	var seriesID sql.NullString
	if v.IsEpisode() {
		if _, err := s.Series(ctx, v.SeriesID); err != nil {
			return err
		}
		seriesID = sql.NullString{String: v.SeriesID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO videos (`+videoColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		year = excluded.year,
		genres = excluded.genres,
		poster = excluded.poster,
		likes = excluded.likes,
		rating = excluded.rating,
		file = excluded.file,
		kind = excluded.kind,
		series_id = excluded.series_id,
		episode = excluded.episode`,
		v.ID, v.Title, v.Description, v.Year, string(genres), v.Poster,
		v.Likes, v.Rating, v.File, string(v.Kind), seriesID, v.Episode)
	if err != nil {
		return fmt.Errorf("catalog store: put video: %w", err)
	}
	return nil
}

func (s *SqliteStore) PutSeries(ctx context.Context, sr domain.Series) error {
	id, err := domain.ParseID(sr.ID)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO series (id, title, description) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET title = excluded.title, description = excluded.description`,
		id, sr.Title, sr.Description)
	if err != nil {
		return fmt.Errorf("catalog store: put series: %w", err)
	}
	return nil
}

func (s *SqliteStore) AdjustLikes(ctx context.Context, id string, delta int) (domain.Video, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET likes = MAX(likes + ?, 0) WHERE id = ?`, delta, id)
	if err != nil {
		return domain.Video{}, fmt.Errorf("catalog store: adjust likes: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Video{}, fmt.Errorf("%w: video %s", domain.ErrNotFound, id)
	}
	return s.Video(ctx, id)
}

// Close is a no-op; the database is shared with the profile adapter.
func (s *SqliteStore) Close() error {
	return nil
}

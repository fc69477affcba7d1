// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelbox/internal/api"
	"github.com/ManuGH/reelbox/internal/cache"
	"github.com/ManuGH/reelbox/internal/catalog"
	"github.com/ManuGH/reelbox/internal/config"
	"github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/media"
	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
	"github.com/ManuGH/reelbox/internal/profile"
	"github.com/ManuGH/reelbox/internal/progress"
	"github.com/ManuGH/reelbox/internal/recommend"
	"github.com/ManuGH/reelbox/internal/stream"
)

// Services is the wired engine behind the API.
type Services struct {
	DB        *sql.DB
	Catalog   catalog.Store
	Likes     profile.Likes
	Progress  progress.Store
	Cache     cache.Cache
	Tracker   *progress.Tracker
	Index     *catalog.Index
	Scorer    *recommend.Scorer
	Library   *media.Library
	Stream    *stream.Service
	closers   []namedHook
	logger    zerolog.Logger
	readyPing func(ctx context.Context) error
}

// openStorage opens the shared catalog database.
var openStorage = sqlite.Open

// Bootstrap opens the stores and wires the engine from cfg. Metrics are
// registered on reg. The caller owns the result and must Close it. On error
// everything opened so far is released.
func Bootstrap(ctx context.Context, cfg config.AppConfig, reg prometheus.Registerer) (_ *Services, err error) {
	s := &Services{logger: log.WithComponent("daemon")}
	defer func() {
		if err == nil {
			return
		}
		if cerr := s.Close(context.WithoutCancel(ctx)); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("failed to release partially wired services")
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s.DB, err = openStorage(cfg.Storage.Path, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s.onClose("sqlite", func(context.Context) error { return s.DB.Close() })

	if s.Catalog, err = catalog.NewSqliteStore(ctx, s.DB); err != nil {
		return nil, err
	}
	if s.Likes, err = profile.NewSqliteLikes(ctx, s.DB); err != nil {
		return nil, err
	}
	if s.Progress, err = openProgressStore(ctx, cfg, s.DB); err != nil {
		return nil, err
	}
	s.onClose("progress", func(context.Context) error { return s.Progress.Close() })
	s.readyPing = s.DB.PingContext

	s.Cache, err = cache.New(cache.Config{
		Backend: cfg.Cache.Backend,
		Redis: cache.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			Namespace: "reelbox",
		},
	}, log.WithComponent("cache"))
	if err != nil {
		return nil, err
	}
	s.onClose("cache", func(context.Context) error { return s.Cache.Close() })

	// Scorer and tracker reference each other: progress writes evict cached
	// recommendations, recommendations read progress history.
	s.Tracker = progress.NewTracker(s.Progress, s.Catalog, progress.WithWriteHook(func(ctx context.Context, profileID string) {
		s.Scorer.Invalidate(ctx, profileID)
	}))
	s.Scorer = recommend.NewScorer(s.Catalog, s.Likes, s.Tracker, recommend.Config{
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
		TopGenres:    cfg.Recommend.TopGenres,
		CacheTTL:     cfg.Recommend.CacheTTL,
	}, recommend.WithCache(s.Cache), recommend.WithRegisterer(reg))

	s.Index = catalog.NewIndex(s.Catalog, s.Likes, s.Tracker, catalog.Config{
		DefaultLimit: cfg.Catalog.DefaultLimit,
		MaxLimit:     cfg.Catalog.MaxLimit,
		HomePopular:  cfg.Catalog.HomePopular,
		HomeCacheTTL: cfg.Catalog.HomeCacheTTL,
	}, catalog.WithCache(s.Cache), catalog.WithLikeHook(s.Scorer.Invalidate))

	s.Library = media.NewLibrary(cfg.Media.Root, s.Catalog)
	s.Stream = stream.NewService(s.Library,
		stream.WithChunkSize(cfg.Stream.ChunkSize),
		stream.WithMetrics(stream.NewPromMetrics(reg)),
	)

	s.logger.Info().
		Str(log.FieldEvent, "daemon.bootstrapped").
		Str("storage", cfg.Storage.Path).
		Str("progress_backend", cfg.Storage.ProgressBackend).
		Str("cache_backend", cfg.Cache.Backend).
		Str("media_root", cfg.Media.Root).
		Msg("engine wired")
	return s, nil
}

// openProgressStore shares the catalog database for sqlite; other backends
// get their own connection.
func openProgressStore(ctx context.Context, cfg config.AppConfig, db *sql.DB) (progress.Store, error) {
	switch cfg.Storage.ProgressBackend {
	case "", "sqlite":
		return progress.NewSqliteStoreDB(ctx, db)
	case "postgres":
		return progress.NewStore("postgres", cfg.Storage.PostgresDSN)
	case "badger":
		return progress.NewStore("badger", filepath.Join(cfg.DataDir, "progress.badger"))
	default:
		return progress.NewStore(cfg.Storage.ProgressBackend, "")
	}
}

// APIDeps exposes the services to the HTTP layer.
func (s *Services) APIDeps() api.Deps {
	return api.Deps{
		Stream:    s.Stream,
		Progress:  s.Tracker,
		Catalog:   s.Index,
		Recommend: s.Scorer,
		Ready:     s.Ready,
	}
}

// Ready pings the shared database.
func (s *Services) Ready(ctx context.Context) error {
	if s.readyPing == nil {
		return errors.New("storage not open")
	}
	return s.readyPing(ctx)
}

// RegisterShutdownHooks hands the closers to m, in the order they must run
// in reverse.
func (s *Services) RegisterShutdownHooks(m Manager) {
	for _, c := range s.closers {
		m.RegisterShutdownHook(c.name, c.hook)
	}
	s.closers = nil
}

// Close releases everything still owned, newest first.
func (s *Services) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.closers[i].name, err))
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Services) onClose(name string, fn ShutdownHook) {
	s.closers = append(s.closers, namedHook{name: name, hook: fn})
}

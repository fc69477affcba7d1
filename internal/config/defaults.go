// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"
)

const (
	// DefaultChunkSize is the open-ended range window in bytes.
	DefaultChunkSize = 1_000_000

	defaultListenAddr        = ":8088"
	defaultMetricsListenAddr = ":9108"
	defaultDataDir           = "/var/lib/reelbox"
)

// Defaults returns the baseline configuration before file and env overrides.
func Defaults() AppConfig {
	return AppConfig{
		DataDir: defaultDataDir,
		Log: LogConfig{
			Level:   "info",
			Service: "reelbox",
		},
		API: APIConfig{
			ListenAddr: defaultListenAddr,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
			},
		},
		Server: ServerRuntimeConfig{
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    0, // streaming responses may run for hours
			IdleTimeout:     120 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 15 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: defaultMetricsListenAddr,
		},
		Storage: StorageConfig{
			ProgressBackend: "sqlite",
		},
		Stream: StreamConfig{
			ChunkSize: DefaultChunkSize,
		},
		Catalog: CatalogConfig{
			DefaultLimit: 24,
			MaxLimit:     60,
			HomePopular:  10,
			HomeCacheTTL: 30 * time.Second,
		},
		Recommend: RecommendConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
			TopGenres:    6,
			CacheTTL:     60 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// resolvePaths fills data-dir relative defaults once DataDir is final.
func resolvePaths(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "reelbox.db")
	}
	if cfg.Media.Root == "" {
		cfg.Media.Root = filepath.Join(cfg.DataDir, "media")
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the fully resolved runtime configuration.
// The same shape is used for the YAML file, so every key below can be set
// in config.yaml and overridden through REELBOX_* environment variables.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir string `yaml:"dataDir" validate:"required"`

	Log       LogConfig           `yaml:"log"`
	API       APIConfig           `yaml:"api"`
	Server    ServerRuntimeConfig `yaml:"server"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Storage   StorageConfig       `yaml:"storage"`
	Media     MediaConfig         `yaml:"media"`
	Stream    StreamConfig        `yaml:"stream"`
	Catalog   CatalogConfig       `yaml:"catalog"`
	Recommend RecommendConfig     `yaml:"recommend"`
	Cache     CacheConfig         `yaml:"cache"`
	Tracing   TracingConfig       `yaml:"tracing"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level   string        `yaml:"level" validate:"oneof=trace debug info warn error"`
	Service string        `yaml:"service"`
	File    LogFileConfig `yaml:"file"`
}

// LogFileConfig enables a rotated log file in addition to stdout.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"min=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"min=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"min=0"`
	Compress   bool   `yaml:"compress"`
}

// APIConfig configures the public HTTP listener.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr" validate:"required"`
	// ServiceToken guards the profile-deletion hook. Empty disables the hook.
	ServiceToken string          `yaml:"serviceToken"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig configures per-IP request limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute" validate:"required_if=Enabled true,min=0"`
}

// ServerRuntimeConfig holds HTTP server timeouts.
type ServerRuntimeConfig struct {
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"min=0"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" validate:"min=0"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"min=0"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr" validate:"required_if=Enabled true"`
}

// StorageConfig selects the persistence backends.
type StorageConfig struct {
	// Path is the SQLite database holding catalog, likes and (by default) progress.
	Path            string `yaml:"path"`
	ProgressBackend string `yaml:"progressBackend" validate:"oneof=sqlite postgres badger memory"`
	PostgresDSN     string `yaml:"postgresDSN" validate:"required_if=ProgressBackend postgres"`
}

// MediaConfig locates the video files.
type MediaConfig struct {
	Root string `yaml:"root" validate:"required"`
}

// StreamConfig tunes the range streaming service.
type StreamConfig struct {
	// ChunkSize bounds responses to open-ended ranges ("bytes=N-").
	ChunkSize int64 `yaml:"chunkSize" validate:"min=1"`
}

// CatalogConfig tunes feed pagination and the home page.
type CatalogConfig struct {
	DefaultLimit int           `yaml:"defaultLimit" validate:"min=1"`
	MaxLimit     int           `yaml:"maxLimit" validate:"min=1"`
	HomePopular  int           `yaml:"homePopular" validate:"min=0"`
	HomeCacheTTL time.Duration `yaml:"homeCacheTTL" validate:"min=0"`
}

// RecommendConfig tunes the recommendation scorer.
type RecommendConfig struct {
	DefaultLimit int           `yaml:"defaultLimit" validate:"min=1"`
	MaxLimit     int           `yaml:"maxLimit" validate:"min=1"`
	TopGenres    int           `yaml:"topGenres" validate:"min=1"`
	CacheTTL     time.Duration `yaml:"cacheTTL" validate:"min=0"`
}

// CacheConfig selects the shared cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend" validate:"oneof=memory redis none"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig points at the Redis instance used by the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"oneof=grpc http"`
	Endpoint     string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	SamplingRate float64 `yaml:"samplingRate" validate:"min=0,max=1"`
	Environment  string  `yaml:"environment"`
}

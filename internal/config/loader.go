// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REELBOX_"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, def string) string {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseString(EnvPrefix+key, def)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseBool(EnvPrefix+key, def)
}

func (l *Loader) envInt(key string, def int) int {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseInt(EnvPrefix+key, def)
}

func (l *Loader) envInt64(key string, def int64) int64 {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseInt64(EnvPrefix+key, def)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseDuration(EnvPrefix+key, def)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.ConsumedEnvKeys[EnvPrefix+key] = struct{}{}
	return ParseFloat(EnvPrefix+key, def)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	resolvePaths(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.DataDir = l.envString("DATA_DIR", cfg.DataDir)

	cfg.Log.Level = strings.ToLower(l.envString("LOG_LEVEL", cfg.Log.Level))
	cfg.Log.Service = l.envString("LOG_SERVICE", cfg.Log.Service)
	cfg.Log.File.Path = l.envString("LOG_FILE", cfg.Log.File.Path)

	cfg.API.ListenAddr = l.envString("LISTEN", cfg.API.ListenAddr)
	cfg.API.ServiceToken = l.envString("SERVICE_TOKEN", cfg.API.ServiceToken)
	cfg.API.RateLimit.Enabled = l.envBool("RATE_LIMIT_ENABLED", cfg.API.RateLimit.Enabled)
	cfg.API.RateLimit.RequestsPerMinute = l.envInt("RATE_LIMIT_RPM", cfg.API.RateLimit.RequestsPerMinute)

	cfg.Server.ReadTimeout = l.envDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = l.envDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = l.envDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Metrics.Enabled = l.envBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString("METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Storage.Path = l.envString("STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.ProgressBackend = strings.ToLower(l.envString("PROGRESS_BACKEND", cfg.Storage.ProgressBackend))
	cfg.Storage.PostgresDSN = l.envString("POSTGRES_DSN", cfg.Storage.PostgresDSN)

	cfg.Media.Root = l.envString("MEDIA_ROOT", cfg.Media.Root)
	cfg.Stream.ChunkSize = l.envInt64("STREAM_CHUNK_SIZE", cfg.Stream.ChunkSize)

	cfg.Catalog.DefaultLimit = l.envInt("CATALOG_DEFAULT_LIMIT", cfg.Catalog.DefaultLimit)
	cfg.Catalog.MaxLimit = l.envInt("CATALOG_MAX_LIMIT", cfg.Catalog.MaxLimit)
	cfg.Catalog.HomePopular = l.envInt("CATALOG_HOME_POPULAR", cfg.Catalog.HomePopular)
	cfg.Catalog.HomeCacheTTL = l.envDuration("CATALOG_HOME_CACHE_TTL", cfg.Catalog.HomeCacheTTL)

	cfg.Recommend.DefaultLimit = l.envInt("RECOMMEND_DEFAULT_LIMIT", cfg.Recommend.DefaultLimit)
	cfg.Recommend.MaxLimit = l.envInt("RECOMMEND_MAX_LIMIT", cfg.Recommend.MaxLimit)
	cfg.Recommend.TopGenres = l.envInt("RECOMMEND_TOP_GENRES", cfg.Recommend.TopGenres)
	cfg.Recommend.CacheTTL = l.envDuration("RECOMMEND_CACHE_TTL", cfg.Recommend.CacheTTL)

	cfg.Cache.Backend = strings.ToLower(l.envString("CACHE_BACKEND", cfg.Cache.Backend))
	cfg.Cache.Redis.Addr = l.envString("REDIS_ADDR", cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = l.envString("REDIS_PASSWORD", cfg.Cache.Redis.Password)
	cfg.Cache.Redis.DB = l.envInt("REDIS_DB", cfg.Cache.Redis.DB)

	cfg.Tracing.Enabled = l.envBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = strings.ToLower(l.envString("TRACING_EXPORTER", cfg.Tracing.Exporter))
	cfg.Tracing.Endpoint = l.envString("TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat("TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)
	cfg.Tracing.Environment = l.envString("TRACING_ENVIRONMENT", cfg.Tracing.Environment)
}

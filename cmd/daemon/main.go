// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/reelbox/internal/api"
	"github.com/ManuGH/reelbox/internal/config"
	"github.com/ManuGH/reelbox/internal/daemon"
	rblog "github.com/ManuGH/reelbox/internal/log"
	"github.com/ManuGH/reelbox/internal/telemetry"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "storage":
			os.Exit(runStorageCLI(os.Args[2:]))
		case "seed":
			os.Exit(runSeedCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until config is loaded
	rblog.Configure(rblog.Config{
		Level:   "info",
		Service: "reelbox",
		Version: version,
	})
	logger := rblog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(rblog.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	rblog.Reconfigure(rblog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
		File: rblog.FileConfig{
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	defer func() { _ = rblog.Close() }()
	logger = rblog.WithComponent("daemon")

	if effectiveConfigPath != "" {
		logger.Info().
			Str(rblog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(rblog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := run(ctx, cfg, loader, effectiveConfigPath); err != nil {
		logger.Error().Err(err).Str(rblog.FieldEvent, "daemon.failed").Msg("daemon exited with error")
		_ = rblog.Close()
		os.Exit(1)
	}
	logger.Info().Msg("daemon stopped")
}

func run(ctx context.Context, cfg config.AppConfig, loader *config.Loader, configPath string) error {
	logger := rblog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := daemon.Bootstrap(ctx, cfg, reg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if cfg.Storage.ProgressBackend == "postgres" {
		logger.Info().Str("dsn", maskURL(cfg.Storage.PostgresDSN)).Msg("progress stored in postgres")
	}
	if cfg.Cache.Backend == "redis" {
		logger.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("cache backed by redis")
	}

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = cfg.Log.Service
	}
	apiServer := api.New(api.Config{
		ServiceToken:      cfg.API.ServiceToken,
		RateLimitEnabled:  cfg.API.RateLimit.Enabled,
		RequestsPerMinute: cfg.API.RateLimit.RequestsPerMinute,
		TracingService:    tracingService,
		Registerer:        reg,
	}, svc.APIDeps())

	deps := daemon.Deps{
		Logger:     logger,
		APIHandler: apiServer.Handler(),
	}
	if cfg.Metrics.Enabled {
		deps.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}

	mgr, err := daemon.NewManager(config.ServerConfigFor(cfg), deps)
	if err != nil {
		_ = svc.Close(context.WithoutCancel(ctx))
		return err
	}
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	svc.RegisterShutdownHooks(mgr)

	var holder *config.Holder
	if configPath != "" {
		holder = config.NewHolder(cfg, loader, configPath)
	}
	return daemon.NewApp(logger, mgr, holder).Run(ctx)
}

func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(config.ParseString(config.EnvPrefix+"DATA_DIR", ""))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/reelbox/internal/catalog"
	"github.com/ManuGH/reelbox/internal/config"
	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/persistence/sqlite"
)

// catalogFixture is the YAML layout accepted by "reelbox seed".
type catalogFixture struct {
	Series []domain.Series `yaml:"series"`
	Videos []domain.Video  `yaml:"videos"`
}

func runSeedCLI(args []string) int {
	fs := flag.NewFlagSet("reelbox seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file, configFile string
	fs.StringVar(&file, "catalog", "", "path to the YAML catalog fixture")
	fs.StringVar(&configFile, "config", "", "path to YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(file) == "" {
		fmt.Fprintln(os.Stderr, "Usage: reelbox seed --catalog catalog.yaml [--config config.yaml]")
		return 2
	}

	configPath := strings.TrimSpace(configFile)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	cfg, err := config.NewLoader(configPath, version).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// #nosec G304 -- fixture path is provided by the operator
	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", file, err)
		return 1
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data dir: %v\n", err)
		return 1
	}
	db, err := sqlite.Open(cfg.Storage.Path, sqlite.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", cfg.Storage.Path, err)
		return 1
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	store, err := catalog.NewSqliteStore(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare catalog: %v\n", err)
		return 1
	}

	series, videos, err := seedCatalog(ctx, store, bytes.NewReader(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
		return 1
	}
	fmt.Printf("seeded %d series and %d videos into %s\n", series, videos, cfg.Storage.Path)
	return 0
}

// seedCatalog upserts every series before any video so episodes can
// reference them.
func seedCatalog(ctx context.Context, store catalog.Store, r io.Reader) (int, int, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx catalogFixture
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("parse fixture: %w", err)
	}

	for _, s := range fx.Series {
		if err := store.PutSeries(ctx, s); err != nil {
			return 0, 0, fmt.Errorf("series %q: %w", s.Title, err)
		}
	}
	for i, v := range fx.Videos {
		if err := store.PutVideo(ctx, v); err != nil {
			return len(fx.Series), i, fmt.Errorf("video %q: %w", v.Title, err)
		}
	}
	return len(fx.Series), len(fx.Videos), nil
}

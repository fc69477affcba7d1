// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelbox/internal/config"
	"github.com/ManuGH/reelbox/internal/log"
)

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil)
	if err := app.Run(context.Background()); !errors.Is(err, ErrMissingManager) {
		t.Fatalf("Run() error = %v, want %v", err, ErrMissingManager)
	}
}

func TestApp_ReloadAppliesLogLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("dataDir: "+t.TempDir()+"\nlog:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	holder := config.NewHolder(initial, loader, path)

	mgr, err := NewManager(config.ServerConfig{ListenAddr: "127.0.0.1:0", ShutdownTimeout: time.Second}, Deps{
		Logger:     log.WithComponent("test"),
		APIHandler: http.NotFoundHandler(),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	app := NewApp(log.WithComponent("test"), mgr, holder)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("dataDir: "+t.TempDir()+"\nlog:\n  level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := holder.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := zerolog.GlobalLevel(); got != zerolog.ErrorLevel {
		t.Errorf("global level = %v, want error", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

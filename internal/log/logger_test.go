// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestReconfigureServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "svc-test", Version: "1.2.3"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("catalog")
	l.Debug().Str(FieldEvent, "probe").Msg("debug line")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["service"] != "svc-test" || entry["version"] != "1.2.3" {
		t.Errorf("unexpected service/version: %v", entry)
	}
	if entry["component"] != "catalog" {
		t.Errorf("component = %v", entry["component"])
	}
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFileOutputRotatorWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelbox.log")
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf, File: FileConfig{Path: path}})
	t.Cleanup(func() {
		_ = Close()
		Reconfigure(Config{})
	})

	L().Info().Msg("to both")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") {
		t.Errorf("log file missing entry: %q", data)
	}
	if !strings.Contains(buf.String(), "to both") {
		t.Errorf("primary output missing entry: %q", buf.String())
	}
}

func TestMiddlewareLogsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	})

	req := httptest.NewRequest(http.MethodGet, "/videos/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v (%q)", err, buf.String())
	}
	if entry["route"] != "/videos/{id}" {
		t.Errorf("route = %v", entry["route"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["bytes"] != float64(5) {
		t.Errorf("bytes = %v", entry["bytes"])
	}
	if entry["level"] != "warn" {
		t.Errorf("level = %v", entry["level"])
	}
}

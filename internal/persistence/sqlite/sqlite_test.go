// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrateAppliesStepsOnce(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "m.db"), DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	steps := []string{
		`CREATE TABLE a (id TEXT PRIMARY KEY)`,
		`ALTER TABLE a ADD COLUMN note TEXT`,
	}
	if err := Migrate(ctx, db, "alpha", steps); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	// Re-running must not re-apply ALTER TABLE (which would fail).
	if err := Migrate(ctx, db, "alpha", steps); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	// Components are versioned independently.
	if err := Migrate(ctx, db, "beta", []string{`CREATE TABLE b (id TEXT)`}); err != nil {
		t.Fatalf("beta Migrate: %v", err)
	}

	var v int
	if err := db.QueryRow(`SELECT version FROM schema_versions WHERE component = 'alpha'`).Scan(&v); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if v != 2 {
		t.Fatalf("alpha version = %d, want 2", v)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "m.db"), DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db, "alpha", []string{`CREATE TABLE a (id TEXT)`, `CREATE TABLE a2 (id TEXT)`}); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	err = Migrate(ctx, db, "alpha", []string{`CREATE TABLE a (id TEXT)`})
	if err == nil || !strings.Contains(err.Error(), "newer than this binary") {
		t.Fatalf("expected downgrade rejection, got %v", err)
	}
}

func TestMigrateFailedStepIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "m.db"), DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db, "alpha", []string{`CREATE TABLE a (id TEXT)`, `NOT SQL`}); err == nil {
		t.Fatal("expected migration error")
	}
	var v int
	if err := db.QueryRow(`SELECT version FROM schema_versions WHERE component = 'alpha'`).Scan(&v); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
}

func TestVerifyIntegrityHealthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.db")
	db, err := Open(path, DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := db.Exec(`INSERT INTO t (data) VALUES (hex(randomblob(50)))`); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	db.Close()

	for _, mode := range []string{"quick", "full"} {
		issues, err := VerifyIntegrity(path, mode)
		if err != nil {
			t.Fatalf("%s verification failed with system error: %v", mode, err)
		}
		if issues != nil {
			t.Fatalf("%s verification reported issues: %v", mode, issues)
		}
	}
}

func TestVerifyIntegrityRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	if err := os.WriteFile(path, []byte(strings.Repeat("not a database ", 512)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	issues, err := VerifyIntegrity(path, "full")
	if err == nil && issues == nil {
		t.Fatal("garbage file passed integrity verification")
	}
}

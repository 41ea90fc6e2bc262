package db

import (
	"path/filepath"
	"testing"
)

func TestNew_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	database, err := New(filepath.Join(dir, "reelcut.db"), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	for _, table := range []string{"_migrations", "projects", "clips", "text_overlays", "config"} {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	dir := t.TempDir()
	database, err := New(filepath.Join(dir, "reelcut.db"), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	var mode string
	if err := database.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reelcut.db")

	first, err := New(path, nil)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	first.Close()

	second, err := New(path, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	var count int
	if err := second.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("migration count = %d, want 1", count)
	}
}

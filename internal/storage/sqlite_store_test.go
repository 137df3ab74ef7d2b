package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreSavesAndExpiresStates(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "state.sqlite"), Options{
		StateTTL:        200 * time.Millisecond,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewStore sqlite: %v", err)
	}
	defer store.Close()

	if _, found, err := store.LastState("api"); err != nil || found {
		t.Fatalf("expected no state, found=%v err=%v", found, err)
	}

	if err := store.SaveState("api", "up"); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := store.SaveState("api", "down"); err != nil {
		t.Fatalf("SaveState upsert: %v", err)
	}

	state, found, err := store.LastState("api")
	if err != nil || !found || state != "down" {
		t.Fatalf("expected latest state down, got state=%q found=%v err=%v", state, found, err)
	}

	time.Sleep(300 * time.Millisecond)

	if _, found, err := store.LastState("api"); err != nil || found {
		t.Fatalf("expected state to expire, found=%v err=%v", found, err)
	}
}

func TestSQLiteStoreCleanupRemovesExpired(t *testing.T) {
	raw, err := openSQLite(filepath.Join(t.TempDir(), "state.sqlite"), Options{
		StateTTL:        50 * time.Millisecond,
		CleanupInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("openSQLite: %v", err)
	}
	store := raw.(*sqliteStore)
	defer store.Close()

	if err := store.SaveState("old", "up"); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := store.SaveState("new", "up"); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	var rows int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM target_states`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected only fresh row to remain, got %d", rows)
	}
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteQueryTimeout = 5 * time.Second

	createStatesTable = `CREATE TABLE IF NOT EXISTS target_states (
	target_id  TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
)`
	selectState = `SELECT state, expires_at FROM target_states WHERE target_id = ?`
	upsertState = `INSERT INTO target_states (target_id, state, expires_at) VALUES (?, ?, ?)
ON CONFLICT(target_id) DO UPDATE SET state = excluded.state, expires_at = excluded.expires_at`
	deleteState   = `DELETE FROM target_states WHERE target_id = ?`
	deleteExpired = `DELETE FROM target_states WHERE expires_at <= ?`
)

// sqliteStore implements a Store backed by SQLite. Expiry is stored as unix millis.
type sqliteStore struct {
	db              *sql.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	stateTTL        time.Duration
	cleanupInterval time.Duration
}

// openSQLite initializes a SQLite-backed Store.
func openSQLite(path string, opts Options) (Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), sqliteQueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, createStatesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init table: %w", err)
	}

	store := &sqliteStore{
		db:              db,
		stateTTL:        opts.StateTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().UnixMilli())
	return store, nil
}

// Close closes the SQLite store.
func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LastState returns the unexpired state stored for id.
func (s *sqliteStore) LastState(id string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, nil
	}

	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteQueryTimeout)
	defer cancel()

	var (
		state     string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, selectState, id).Scan(&state, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query state: %w", err)
	}

	if expiresAt <= now.UnixMilli() {
		if _, err := s.db.ExecContext(ctx, deleteState, id); err != nil {
			return "", false, fmt.Errorf("delete expired state: %w", err)
		}
		return "", false, nil
	}
	return state, true, nil
}

// SaveState stores state for id and refreshes its expiry.
func (s *sqliteStore) SaveState(id, state string) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteQueryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, upsertState, id, state, now.Add(s.stateTTL).UnixMilli()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *sqliteStore) maybeCleanupExpired(now time.Time) error {
	last := time.UnixMilli(s.lastCleanup.Load())
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	last = time.UnixMilli(s.lastCleanup.Load())
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteQueryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, deleteExpired, now.UnixMilli()); err != nil {
		return fmt.Errorf("cleanup expired states: %w", err)
	}
	s.lastCleanup.Store(now.UnixMilli())
	return nil
}

package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage persists the last observed state of each probe target.

// Store tracks the last observed state per target id.
type Store interface {
	Close() error
	LastState(id string) (string, bool, error)
	SaveState(id, state string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	StateTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultStateTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case "sqlite":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.StateTTL <= 0 {
		opts.StateTTL = defaultStateTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                           { return nil }
func (noopStore) LastState(string) (string, bool, error) { return "", false, nil }
func (noopStore) SaveState(string, string) error         { return nil }

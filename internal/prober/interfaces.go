package prober

import (
	"context"

	"github.com/samvad-hq/samvad-probe/pkg/publishers"
)

// EventPublisher publishes state transition events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// StateStore persists the last observed state per target.
type StateStore interface {
	LastState(id string) (string, bool, error)
	SaveState(id, state string) error
}

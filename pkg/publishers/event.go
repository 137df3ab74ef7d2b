package publishers

import (
	"time"

	"github.com/google/uuid"
)

// Event is a target state transition published downstream.
type Event struct {
	ID            string    `json:"id"`
	TargetID      string    `json:"target_id"`
	TargetName    string    `json:"target_name"`
	State         string    `json:"state"`
	PreviousState string    `json:"previous_state,omitempty"`
	Kind          string    `json:"kind"`
	StatusCode    int       `json:"status_code,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	Detail        string    `json:"detail,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

// NewEvent constructs an Event with a fresh id for a target moving from
// previous to state. previous is empty on the first observation.
func NewEvent(targetID, targetName, state, previous string) Event {
	return Event{
		ID:            uuid.NewString(),
		TargetID:      targetID,
		TargetName:    targetName,
		State:         state,
		PreviousState: previous,
		ObservedAt:    time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"target_id": e.TargetID,
		"state":     e.State,
	}
}

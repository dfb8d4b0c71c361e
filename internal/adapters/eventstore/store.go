// Package eventstore persists the append-only interview event log and
// owns sequence allocation and idempotency. Appends to one interview
// are serialized; appends to different interviews proceed in parallel.
package eventstore

import (
	"context"
	"time"

	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/state"
)

// AppendRequest carries one event to append. Seq, SectionID and
// CreatedAt are assigned by the store.
type AppendRequest struct {
	InterviewID string
	ActorType   event.ActorType
	Type        event.Type
	Payload     event.Payload
	// ClientEventID is the optional idempotency key. When a row with
	// the same (interview, client event id) exists, the original
	// result is returned and nothing is written.
	ClientEventID string
}

// AppendResult reports the stored position of an appended event.
type AppendResult struct {
	Seq       int64
	CreatedAt time.Time
	// Duplicate is true when the append was absorbed by an earlier
	// event with the same client event id. Not an error: callers use
	// it to tell a no-op replay from a new effect.
	Duplicate bool
}

// Store is the event log contract.
type Store interface {
	// Append allocates the next sequence number under the interview's
	// write lock, attributes the event to the section current before
	// the append, and inserts it. Idempotent by client event id.
	Append(ctx context.Context, req AppendRequest) (AppendResult, error)

	// GetEventsAndState reads the full ordered history and reduces it.
	// This is the single read path before any decision is made.
	GetEventsAndState(ctx context.Context, interviewID string) ([]event.Event, state.State, error)

	// EventsSince returns events with seq greater than sinceSeq, in
	// order. The poll cursor for snapshot delivery.
	EventsSince(ctx context.Context, interviewID string, sinceSeq int64) ([]event.Event, error)
}

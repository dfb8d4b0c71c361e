package eventstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/state"
)

// MemoryStore implements Store in memory. A per-interview mutex mirrors
// the row-level lock the SQLite store gets from its transaction, so the
// two implementations expose identical concurrency behavior to tests.
type MemoryStore struct {
	mu         sync.Mutex
	interviews map[string]*memoryLog
	now        func() time.Time
}

type memoryLog struct {
	mu       sync.Mutex
	events   []event.Event
	byClient map[string]int64
}

// MemoryOption configures the memory store.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the time source, for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemory creates an empty in-memory event log.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		interviews: make(map[string]*memoryLog),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) log(interviewID string, create bool) (*memoryLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.interviews[interviewID]
	if !ok && create {
		l = &memoryLog{byClient: make(map[string]int64)}
		s.interviews[interviewID] = l
		ok = true
	}
	return l, ok
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, req AppendRequest) (AppendResult, error) {
	if req.InterviewID == "" {
		return AppendResult{}, fmt.Errorf("%w: interview id is required", ErrBadRequest)
	}
	if !req.Type.IsValid() {
		return AppendResult{}, fmt.Errorf("%w: event type is required", ErrBadRequest)
	}
	if !req.ActorType.IsValid() {
		return AppendResult{}, fmt.Errorf("%w: actor type %q", event.ErrBadActor, req.ActorType)
	}

	l, _ := s.log(req.InterviewID, true)
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.ClientEventID != "" {
		if seq, ok := l.byClient[req.ClientEventID]; ok {
			return AppendResult{
				Seq:       seq,
				CreatedAt: l.events[seq-1].CreatedAt,
				Duplicate: true,
			}, nil
		}
	}

	st := state.Reduce(l.events)
	evt := event.Event{
		InterviewID:   req.InterviewID,
		Seq:           st.LastSeq + 1,
		Type:          req.Type,
		ActorType:     req.ActorType,
		SectionID:     st.CurrentSectionID,
		ClientEventID: req.ClientEventID,
		CreatedAt:     s.now().UTC(),
		Payload:       req.Payload,
	}
	l.events = append(l.events, evt)
	if req.ClientEventID != "" {
		l.byClient[req.ClientEventID] = evt.Seq
	}
	return AppendResult{Seq: evt.Seq, CreatedAt: evt.CreatedAt}, nil
}

// GetEventsAndState implements Store.
func (s *MemoryStore) GetEventsAndState(ctx context.Context, interviewID string) ([]event.Event, state.State, error) {
	l, ok := s.log(interviewID, false)
	if !ok {
		return nil, state.State{}, fmt.Errorf("%w: %s", ErrNotFound, interviewID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil, state.State{}, fmt.Errorf("%w: %s", ErrNotFound, interviewID)
	}
	events := make([]event.Event, len(l.events))
	copy(events, l.events)
	if err := verifySequence(events); err != nil {
		return nil, state.State{}, err
	}
	return events, state.Reduce(events), nil
}

// EventsSince implements Store.
func (s *MemoryStore) EventsSince(ctx context.Context, interviewID string, sinceSeq int64) ([]event.Event, error) {
	l, ok := s.log(interviewID, false)
	if !ok {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []event.Event
	for _, evt := range l.events {
		if evt.Seq > sinceSeq {
			out = append(out, evt)
		}
	}
	return out, nil
}

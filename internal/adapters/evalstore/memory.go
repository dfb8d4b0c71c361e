package evalstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/parley/internal/domain/evaluation"
)

type resultKey struct {
	interviewID string
	version     string
}

// MemoryStore implements Store in memory, for tests and the simulate
// harness.
type MemoryStore struct {
	mu        sync.Mutex
	results   map[resultKey]evaluation.Output
	overrides map[resultKey][]evaluation.Override
	jobs      map[string]Job
}

// NewMemory creates an empty in-memory evaluation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		results:   make(map[resultKey]evaluation.Output),
		overrides: make(map[resultKey][]evaluation.Override),
		jobs:      make(map[string]Job),
	}
}

// SaveResult implements Store.
func (s *MemoryStore) SaveResult(ctx context.Context, out evaluation.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := resultKey{out.InterviewID, out.Version}
	if _, exists := s.results[k]; exists {
		return fmt.Errorf("%w: %s@%s", ErrAlreadyExists, out.InterviewID, out.Version)
	}
	s.results[k] = out
	return nil
}

// GetResult implements Store.
func (s *MemoryStore) GetResult(ctx context.Context, interviewID, version string) (evaluation.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.results[resultKey{interviewID, version}]
	if !ok {
		return evaluation.Output{}, fmt.Errorf("%w: %s@%s", ErrNotFound, interviewID, version)
	}
	return out, nil
}

// SaveOverride implements Store.
func (s *MemoryStore) SaveOverride(ctx context.Context, o evaluation.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := resultKey{o.InterviewID, o.Version}
	s.overrides[k] = append(s.overrides[k], o)
	return nil
}

// Overrides implements Store.
func (s *MemoryStore) Overrides(ctx context.Context, interviewID, version string) ([]evaluation.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.overrides[resultKey{interviewID, version}]
	out := make([]evaluation.Override, len(src))
	copy(out, src)
	return out, nil
}

// CreateJob implements Store.
func (s *MemoryStore) CreateJob(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Status = JobPending
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = job
	return nil
}

// UpdateJob implements Store.
func (s *MemoryStore) UpdateJob(ctx context.Context, id string, status JobStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return nil
}

// GetJob implements Store.
func (s *MemoryStore) GetJob(ctx context.Context, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return job, nil
}

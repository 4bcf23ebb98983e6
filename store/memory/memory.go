package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallnest/careergraph/store"
)

// MemoryCheckpointStore keeps checkpoints in process memory. It is the
// default store for single-process runs and tests.
type MemoryCheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[string]*store.Checkpoint
	ttl         time.Duration
	now         func() time.Time
}

var (
	_ store.CheckpointStore = (*MemoryCheckpointStore)(nil)
	_ store.Taker           = (*MemoryCheckpointStore)(nil)
)

// Option configures a MemoryCheckpointStore.
type Option func(*MemoryCheckpointStore)

// WithTTL expires checkpoints older than ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryCheckpointStore) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryCheckpointStore) {
		s.now = now
	}
}

// NewMemoryCheckpointStore creates an empty in-memory store.
func NewMemoryCheckpointStore(opts ...Option) *MemoryCheckpointStore {
	s := &MemoryCheckpointStore{
		checkpoints: make(map[string]*store.Checkpoint),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a copy of checkpoint.
func (s *MemoryCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	if checkpoint == nil || checkpoint.ID == "" {
		return fmt.Errorf("checkpoint id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpoint.ID] = clone(checkpoint)
	return nil
}

// Load returns a copy of the checkpoint.
func (s *MemoryCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.lookup(checkpointID)
	if err != nil {
		return nil, err
	}
	return clone(cp), nil
}

// Delete removes a checkpoint.
func (s *MemoryCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, checkpointID)
	return nil
}

// Take returns the checkpoint and removes it under one lock.
func (s *MemoryCheckpointStore) Take(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.lookup(checkpointID)
	if err != nil {
		return nil, err
	}
	delete(s.checkpoints, checkpointID)
	return cp, nil
}

// Len returns the number of live checkpoints.
func (s *MemoryCheckpointStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.checkpoints {
		if _, err := s.lookup(id); err == nil {
			n++
		}
	}
	return n
}

// lookup must be called with mu held. Expired checkpoints are evicted.
func (s *MemoryCheckpointStore) lookup(checkpointID string) (*store.Checkpoint, error) {
	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	if store.Expired(cp, s.ttl, s.now()) {
		delete(s.checkpoints, checkpointID)
		return nil, fmt.Errorf("%w: %s expired", store.ErrNotFound, checkpointID)
	}
	return cp, nil
}

func clone(cp *store.Checkpoint) *store.Checkpoint {
	out := *cp
	out.State = append([]byte(nil), cp.State...)
	if cp.Metadata != nil {
		out.Metadata = make(map[string]string, len(cp.Metadata))
		for k, v := range cp.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

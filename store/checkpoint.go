package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a checkpoint does not exist or has expired.
var ErrNotFound = errors.New("checkpoint not found")

// CurrentVersion is the checkpoint format written by this package.
const CurrentVersion = 1

// Checkpoint is a persisted state snapshot taken between two phases of a
// workflow. State is the schema-encoded state; the store never interprets it.
type Checkpoint struct {
	ID        string            `json:"id"`
	NodeName  string            `json:"node_name"`
	State     json.RawMessage   `json:"state"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   int               `json:"version"`
}

// CheckpointStore defines the interface for checkpoint persistence
type CheckpointStore interface {
	// Save stores a checkpoint, replacing any checkpoint with the same ID
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID. It returns ErrNotFound for unknown
	// and expired checkpoints.
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
	Delete(ctx context.Context, checkpointID string) error
}

// Taker is implemented by stores that can load and delete a checkpoint in
// one atomic step.
type Taker interface {
	// Take returns the checkpoint and removes it. Of several concurrent
	// callers at most one succeeds; the others get ErrNotFound.
	Take(ctx context.Context, checkpointID string) (*Checkpoint, error)
}

// Take consumes a checkpoint from s. Stores implementing Taker consume it
// atomically; for the others Take falls back to Load followed by Delete.
func Take(ctx context.Context, s CheckpointStore, checkpointID string) (*Checkpoint, error) {
	if t, ok := s.(Taker); ok {
		return t.Take(ctx, checkpointID)
	}
	cp, err := s.Load(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, checkpointID); err != nil {
		return nil, err
	}
	return cp, nil
}

// Expired reports whether cp is older than ttl at now. A zero ttl never expires.
func Expired(cp *Checkpoint, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(cp.Timestamp) >= ttl
}

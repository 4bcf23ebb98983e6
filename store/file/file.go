package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/smallnest/careergraph/store"
)

// FileCheckpointStore writes one JSON file per checkpoint into a directory.
type FileCheckpointStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	// mu serializes Take within this process. Separate processes sharing a
	// directory rely on the atomic rename in Take.
	mu sync.Mutex
}

var (
	_ store.CheckpointStore = (*FileCheckpointStore)(nil)
	_ store.Taker           = (*FileCheckpointStore)(nil)
)

// NewFileCheckpointStore creates the directory if needed and returns a store
// rooted at it. A positive ttl expires checkpoints older than it.
func NewFileCheckpointStore(path string, ttl time.Duration) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileCheckpointStore{path: path, ttl: ttl, now: time.Now}, nil
}

func (s *FileCheckpointStore) filename(checkpointID string) (string, error) {
	if checkpointID == "" || checkpointID != filepath.Base(checkpointID) || strings.HasPrefix(checkpointID, ".") {
		return "", fmt.Errorf("invalid checkpoint id %q", checkpointID)
	}
	return filepath.Join(s.path, checkpointID+".json"), nil
}

// Save writes the checkpoint atomically via a temporary file.
func (s *FileCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	name, err := s.filename(checkpoint.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.path, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint. Expired files are removed.
func (s *FileCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	name, err := s.filename(checkpointID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	return s.read(name, checkpointID)
}

func (s *FileCheckpointStore) read(name, checkpointID string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if store.Expired(&cp, s.ttl, s.now()) {
		_ = os.Remove(name)
		return nil, fmt.Errorf("%w: %s expired", store.ErrNotFound, checkpointID)
	}
	return &cp, nil
}

// Delete removes a checkpoint file.
func (s *FileCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	name, err := s.filename(checkpointID)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Take claims the checkpoint by renaming its file before reading it, so two
// callers racing on the same id cannot both succeed.
func (s *FileCheckpointStore) Take(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	name, err := s.filename(checkpointID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := filepath.Join(s.path, ".taken-"+checkpointID)
	if err := os.Rename(name, claimed); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
		}
		return nil, fmt.Errorf("failed to claim checkpoint: %w", err)
	}
	defer os.Remove(claimed)

	return s.read(claimed, checkpointID)
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smallnest/careergraph/store"
)

func TestMemoryCheckpointStore_New(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()

	if ms == nil {
		t.Fatal("Store should not be nil")
	}

	var _ store.CheckpointStore = ms
}

func TestMemoryCheckpointStore_BasicOperations(t *testing.T) {
	t.Parallel()

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		ctx := context.Background()

		cp := &store.Checkpoint{
			ID:        "session-123",
			NodeName:  "career_matcher",
			State:     []byte(`{"stage":"matching"}`),
			Timestamp: time.Now(),
			Version:   store.CurrentVersion,
			Metadata: map[string]string{
				"phase": "one",
			},
		}

		if err := ms.Save(ctx, cp); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		loaded, err := ms.Load(ctx, cp.ID)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}

		if loaded.ID != cp.ID || loaded.NodeName != cp.NodeName {
			t.Errorf("Loaded checkpoint mismatch: %+v", loaded)
		}
		if string(loaded.State) != string(cp.State) {
			t.Errorf("Expected state %s, got %s", cp.State, loaded.State)
		}
		if loaded.Metadata["phase"] != "one" {
			t.Errorf("Expected metadata phase=one, got %v", loaded.Metadata)
		}
	})

	t.Run("load returns a copy", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		ctx := context.Background()
		_ = ms.Save(ctx, &store.Checkpoint{ID: "cp", State: []byte(`{}`), Metadata: map[string]string{"k": "v"}})

		loaded, _ := ms.Load(ctx, "cp")
		loaded.Metadata["k"] = "changed"
		loaded.State[0] = '['

		again, _ := ms.Load(ctx, "cp")
		if again.Metadata["k"] != "v" || string(again.State) != `{}` {
			t.Errorf("Stored checkpoint was mutated through a loaded copy: %+v", again)
		}
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		_, err := ms.Load(context.Background(), "ghost")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save requires id", func(t *testing.T) {
		t.Parallel()

		ms := NewMemoryCheckpointStore()
		if err := ms.Save(context.Background(), &store.Checkpoint{}); err == nil {
			t.Error("Expected error for empty id")
		}
	})
}

func TestMemoryCheckpointStore_Delete(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()
	ctx := context.Background()
	_ = ms.Save(ctx, &store.Checkpoint{ID: "cp"})

	if err := ms.Delete(ctx, "cp"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := ms.Load(ctx, "cp"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := ms.Delete(ctx, "cp"); err != nil {
		t.Errorf("Deleting a missing checkpoint should succeed, got %v", err)
	}
}

func TestMemoryCheckpointStore_TTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ms := NewMemoryCheckpointStore(WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = ms.Save(ctx, &store.Checkpoint{ID: "fresh", Timestamp: now.Add(-30 * time.Minute)})
	_ = ms.Save(ctx, &store.Checkpoint{ID: "stale", Timestamp: now.Add(-2 * time.Hour)})

	if _, err := ms.Load(ctx, "fresh"); err != nil {
		t.Errorf("Fresh checkpoint should load, got %v", err)
	}
	if _, err := ms.Load(ctx, "stale"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for expired checkpoint, got %v", err)
	}
	if _, err := ms.Take(ctx, "stale"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expired checkpoint must not be taken, got %v", err)
	}
	if n := ms.Len(); n != 1 {
		t.Errorf("Expected 1 live checkpoint, got %d", n)
	}
}

func TestMemoryCheckpointStore_TakeOnce(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()
	ctx := context.Background()
	_ = ms.Save(ctx, &store.Checkpoint{ID: "cp"})

	const callers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _iter := 0; _iter < callers; _iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ms.Take(ctx, "cp"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one successful take, got %d", wins)
	}
}

func TestMemoryCheckpointStore_Concurrent(t *testing.T) {
	t.Parallel()

	ms := NewMemoryCheckpointStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				id := fmt.Sprintf("worker-%d-%d", worker, j)
				if err := ms.Save(ctx, &store.Checkpoint{ID: id}); err != nil {
					t.Errorf("save %s: %v", id, err)
				}
				if _, err := ms.Load(ctx, id); err != nil {
					t.Errorf("load %s: %v", id, err)
				}
			}
		}(i)
	}
	wg.Wait()

	if n := ms.Len(); n != 15 {
		t.Errorf("Expected 15 checkpoints, got %d", n)
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStore is a minimal CheckpointStore without Taker.
type mapStore struct {
	items     map[string]*Checkpoint
	deleteErr error
}

func (m *mapStore) Save(_ context.Context, cp *Checkpoint) error {
	m.items[cp.ID] = cp
	return nil
}

func (m *mapStore) Load(_ context.Context, id string) (*Checkpoint, error) {
	cp, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cp, nil
}

func (m *mapStore) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.items, id)
	return nil
}

type takingStore struct {
	mapStore
	taken int
}

func (t *takingStore) Take(ctx context.Context, id string) (*Checkpoint, error) {
	t.taken++
	cp, err := t.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	delete(t.items, id)
	return cp, nil
}

func TestTake(t *testing.T) {
	ctx := context.Background()

	t.Run("Load then delete", func(t *testing.T) {
		s := &mapStore{items: map[string]*Checkpoint{"a": {ID: "a"}}}
		cp, err := Take(ctx, s, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", cp.ID)

		_, err = Take(ctx, s, "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete failure", func(t *testing.T) {
		boom := errors.New("boom")
		s := &mapStore{items: map[string]*Checkpoint{"a": {ID: "a"}}, deleteErr: boom}
		_, err := Take(ctx, s, "a")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Uses Taker", func(t *testing.T) {
		s := &takingStore{mapStore: mapStore{items: map[string]*Checkpoint{"a": {ID: "a"}}}}
		_, err := Take(ctx, s, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, s.taken)
	})
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cp := &Checkpoint{Timestamp: now.Add(-time.Hour)}

	assert.False(t, Expired(cp, 0, now))
	assert.False(t, Expired(cp, 2*time.Hour, now))
	assert.True(t, Expired(cp, time.Hour, now))
}

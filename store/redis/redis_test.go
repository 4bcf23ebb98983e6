package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/careergraph/store"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisCheckpointStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s := NewRedisCheckpointStore(RedisOptions{
		Addr: mr.Addr(),
		TTL:  ttl,
	})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisCheckpointStore(t *testing.T) {
	s, mr := newTestStore(t, 0)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	cp := &store.Checkpoint{
		ID:        "cp-1",
		NodeName:  "career_matcher",
		State:     []byte(`{"stage":"matching"}`),
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Version:   store.CurrentVersion,
		Metadata:  map[string]string{"options_field": "career_fits"},
	}

	require.NoError(t, s.Save(ctx, cp))
	assert.True(t, mr.Exists("careergraph:checkpoint:cp-1"))

	loaded, err := s.Load(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
	assert.Equal(t, cp.NodeName, loaded.NodeName)
	assert.JSONEq(t, string(cp.State), string(loaded.State))
	assert.Equal(t, cp.Metadata, loaded.Metadata)
	assert.True(t, cp.Timestamp.Equal(loaded.Timestamp))

	require.NoError(t, s.Delete(ctx, "cp-1"))
	_, err = s.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "cp-1"))
}

func TestRedisCheckpointStore_Take(t *testing.T) {
	s, mr := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", State: []byte(`{}`)}))

	taken, err := s.Take(ctx, "cp-1")
	require.NoError(t, err)
	assert.Equal(t, "cp-1", taken.ID)
	assert.False(t, mr.Exists("careergraph:checkpoint:cp-1"))

	_, err = s.Take(ctx, "cp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisCheckpointStore_TTL(t *testing.T) {
	s, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "cp-1", State: []byte(`{}`)}))
	assert.Equal(t, time.Minute, mr.TTL("careergraph:checkpoint:cp-1"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Load(ctx, "cp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisCheckpointStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedisCheckpointStore(RedisOptions{Addr: mr.Addr(), Prefix: "tenant-a:"})
	require.NoError(t, s.Save(context.Background(), &store.Checkpoint{ID: "x"}))
	assert.True(t, mr.Exists("tenant-a:checkpoint:x"))
}

func TestRedisCheckpointStore_CorruptPayload(t *testing.T) {
	s, mr := newTestStore(t, 0)
	require.NoError(t, mr.Set("careergraph:checkpoint:bad", "not json"))

	_, err := s.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/careergraph/store"
)

// RedisCheckpointStore implements store.CheckpointStore using Redis
type RedisCheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var (
	_ store.CheckpointStore = (*RedisCheckpointStore)(nil)
	_ store.Taker           = (*RedisCheckpointStore)(nil)
)

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "careergraph:"
	TTL      time.Duration // Expiration for checkpoints, default 0 (no expiration)
}

// NewRedisCheckpointStore creates a new Redis checkpoint store
func NewRedisCheckpointStore(opts RedisOptions) *RedisCheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "careergraph:"
	}

	return &RedisCheckpointStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisCheckpointStore) checkpointKey(id string) string {
	return fmt.Sprintf("%scheckpoint:%s", s.prefix, id)
}

// Ping checks the connection.
func (s *RedisCheckpointStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisCheckpointStore) Close() error {
	return s.client.Close()
}

// Save stores a checkpoint. Redis expires it after the configured TTL.
func (s *RedisCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, s.checkpointKey(checkpoint.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *RedisCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(checkpointID)).Bytes()
	if err != nil {
		return nil, s.wrap(err, "load", checkpointID)
	}
	return decode(data)
}

// Delete removes a checkpoint
func (s *RedisCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	if err := s.client.Del(ctx, s.checkpointKey(checkpointID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Take retrieves and removes a checkpoint with a single GETDEL.
func (s *RedisCheckpointStore) Take(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	data, err := s.client.GetDel(ctx, s.checkpointKey(checkpointID)).Bytes()
	if err != nil {
		return nil, s.wrap(err, "take", checkpointID)
	}
	return decode(data)
}

func (s *RedisCheckpointStore) wrap(err error, op, checkpointID string) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
	}
	return fmt.Errorf("failed to %s checkpoint from redis: %w", op, err)
}

func decode(data []byte) (*store.Checkpoint, error) {
	var checkpoint store.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

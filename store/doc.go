// Package store defines the checkpoint contract used at the boundary between
// the two phases of a workflow, plus the helpers shared by its backends.
//
// A Checkpoint carries the schema-encoded state of a finished phase. Stores
// treat that payload as opaque bytes; decoding it back into typed state is the
// job of the graph schema that produced it.
//
// # Backends
//
//   - memory: in-process map, default for single-process runs and tests
//   - file: one JSON file per checkpoint in a directory
//   - redis: github.com/redis/go-redis/v9, TTL via key expiry
//   - postgres: github.com/jackc/pgx/v5 connection pool
//   - sqlite: github.com/mattn/go-sqlite3 through database/sql
//
// Every backend implements Taker, so a checkpoint is consumed atomically:
// when several callers resume the same checkpoint concurrently, exactly one
// of them gets it. Use the package-level Take to consume a checkpoint from
// any CheckpointStore.
//
// # Expiry
//
// Backends configured with a TTL report checkpoints older than it as
// ErrNotFound, the same error returned for ids that never existed.
//
//	s := memory.NewMemoryCheckpointStore(memory.WithTTL(24 * time.Hour))
//	if err := s.Save(ctx, cp); err != nil {
//		return err
//	}
//	cp, err := store.Take(ctx, s, id)
//	if errors.Is(err, store.ErrNotFound) {
//		// unknown, expired or already consumed
//	}
package store

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/careergraph/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresCheckpointStore implements store.CheckpointStore using PostgreSQL
type PostgresCheckpointStore struct {
	pool      DBPool
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

var (
	_ store.CheckpointStore = (*PostgresCheckpointStore)(nil)
	_ store.Taker           = (*PostgresCheckpointStore)(nil)
)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string        // Default "checkpoints"
	TTL        time.Duration // Checkpoints older than TTL are treated as missing
}

// NewPostgresCheckpointStore creates a new Postgres checkpoint store
func NewPostgresCheckpointStore(ctx context.Context, opts PostgresOptions) (*PostgresCheckpointStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := NewPostgresCheckpointStoreWithPool(pool, opts.TableName)
	s.ttl = opts.TTL
	return s, nil
}

// NewPostgresCheckpointStoreWithPool creates a new Postgres checkpoint store with an existing pool
// Useful for testing with mocks
func NewPostgresCheckpointStoreWithPool(pool DBPool, tableName string) *PostgresCheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &PostgresCheckpointStore{
		pool:      pool,
		tableName: tableName,
		now:       time.Now,
	}
}

// SetTTL sets the expiry applied by Load and Take.
func (s *PostgresCheckpointStore) SetTTL(ttl time.Duration) {
	s.ttl = ttl
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			node_name TEXT NOT NULL,
			state JSONB NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresCheckpointStore) Close() {
	s.pool.Close()
}

// Save stores a checkpoint
func (s *PostgresCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	metadataJSON, err := json.Marshal(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, node_name, state, metadata, timestamp, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			node_name = EXCLUDED.node_name,
			state = EXCLUDED.state,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		checkpoint.ID,
		checkpoint.NodeName,
		[]byte(stateOrNull(checkpoint.State)),
		metadataJSON,
		checkpoint.Timestamp,
		checkpoint.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *PostgresCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, node_name, state, metadata, timestamp, version
		FROM %s
		WHERE id = $1
	`, s.tableName)

	return s.scan(s.pool.QueryRow(ctx, query, checkpointID), "load", checkpointID)
}

// Delete removes a checkpoint
func (s *PostgresCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	_, err := s.pool.Exec(ctx, query, checkpointID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Take deletes the row and returns it in one statement.
func (s *PostgresCheckpointStore) Take(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
		RETURNING id, node_name, state, metadata, timestamp, version
	`, s.tableName)

	return s.scan(s.pool.QueryRow(ctx, query, checkpointID), "take", checkpointID)
}

func (s *PostgresCheckpointStore) scan(row pgx.Row, op, checkpointID string) (*store.Checkpoint, error) {
	var cp store.Checkpoint
	var stateJSON []byte
	var metadataJSON []byte

	err := row.Scan(
		&cp.ID,
		&cp.NodeName,
		&stateJSON,
		&metadataJSON,
		&cp.Timestamp,
		&cp.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
		}
		return nil, fmt.Errorf("failed to %s checkpoint: %w", op, err)
	}

	if !json.Valid(stateJSON) {
		return nil, fmt.Errorf("failed to unmarshal state: invalid JSON")
	}
	cp.State = stateJSON

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	if store.Expired(&cp, s.ttl, s.now()) {
		return nil, fmt.Errorf("%w: %s expired", store.ErrNotFound, checkpointID)
	}
	return &cp, nil
}

func stateOrNull(state json.RawMessage) json.RawMessage {
	if len(state) == 0 {
		return json.RawMessage("null")
	}
	return state
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/careergraph/store"
)

// SqliteCheckpointStore implements store.CheckpointStore using SQLite
type SqliteCheckpointStore struct {
	db        *sql.DB
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

var (
	_ store.CheckpointStore = (*SqliteCheckpointStore)(nil)
	_ store.Taker           = (*SqliteCheckpointStore)(nil)
)

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string        // Default "checkpoints"
	TTL       time.Duration // Checkpoints older than TTL are treated as missing
}

// NewSqliteCheckpointStore creates a new SQLite checkpoint store
func NewSqliteCheckpointStore(opts SqliteOptions) (*SqliteCheckpointStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}

	s := &SqliteCheckpointStore{
		db:        db,
		tableName: tableName,
		ttl:       opts.TTL,
		now:       time.Now,
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteCheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			node_name TEXT NOT NULL,
			state TEXT NOT NULL,
			metadata TEXT,
			timestamp DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteCheckpointStore) Close() error {
	return s.db.Close()
}

// Save stores a checkpoint
func (s *SqliteCheckpointStore) Save(ctx context.Context, checkpoint *store.Checkpoint) error {
	metadataJSON, err := json.Marshal(checkpoint.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	state := string(checkpoint.State)
	if state == "" {
		state = "null"
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, node_name, state, metadata, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			node_name = excluded.node_name,
			state = excluded.state,
			metadata = excluded.metadata,
			timestamp = excluded.timestamp,
			version = excluded.version
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ID,
		checkpoint.NodeName,
		state,
		string(metadataJSON),
		checkpoint.Timestamp.UTC(),
		checkpoint.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *SqliteCheckpointStore) Load(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, node_name, state, metadata, timestamp, version
		FROM %s
		WHERE id = ?
	`, s.tableName)

	return s.scan(s.db.QueryRowContext(ctx, query, checkpointID), "load", checkpointID)
}

// Delete removes a checkpoint
func (s *SqliteCheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	_, err := s.db.ExecContext(ctx, query, checkpointID)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Take deletes the row and returns it in one statement.
func (s *SqliteCheckpointStore) Take(ctx context.Context, checkpointID string) (*store.Checkpoint, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = ?
		RETURNING id, node_name, state, metadata, timestamp, version
	`, s.tableName)

	return s.scan(s.db.QueryRowContext(ctx, query, checkpointID), "take", checkpointID)
}

func (s *SqliteCheckpointStore) scan(row *sql.Row, op, checkpointID string) (*store.Checkpoint, error) {
	var cp store.Checkpoint
	var stateJSON string
	var metadataJSON sql.NullString

	err := row.Scan(
		&cp.ID,
		&cp.NodeName,
		&stateJSON,
		&metadataJSON,
		&cp.Timestamp,
		&cp.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, checkpointID)
		}
		return nil, fmt.Errorf("failed to %s checkpoint: %w", op, err)
	}

	if !json.Valid([]byte(stateJSON)) {
		return nil, fmt.Errorf("failed to unmarshal state: invalid JSON")
	}
	cp.State = json.RawMessage(stateJSON)

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	if store.Expired(&cp, s.ttl, s.now()) {
		return nil, fmt.Errorf("%w: %s expired", store.ErrNotFound, checkpointID)
	}
	return &cp, nil
}

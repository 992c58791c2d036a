// Package storage holds the durable local state of the client: the raw
// payload cache reads degrade to when the backend is unreachable, and the
// queue of locally created entities awaiting reconciliation.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// PendingEntity is a locally created project or transaction waiting to be
// replayed against the backend.
type PendingEntity struct {
	LocalID   string
	Kind      string // "project" or "transaction"
	Payload   []byte
	Attempts  int64
	LastError string
	CreatedAt time.Time
}

const (
	KindProject     = "project"
	KindTransaction = "transaction"
)

// SQLiteStore is the persistent fallback store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the store at dbPath and applies
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write stores a raw payload under the given cache key, replacing any
// previous value.
func (s *SQLiteStore) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fallback_cache (cache_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write cache key %s: %w", key, err)
	}
	return nil
}

// Read returns the cached payload for key. The second return is false when
// the key has never been written.
func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM fallback_cache WHERE cache_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache key %s: %w", key, err)
	}
	return payload, true, nil
}

// Delete removes a cache key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM fallback_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete cache key %s: %w", key, err)
	}
	return nil
}

// EnqueuePending records a locally created entity for later reconciliation.
func (s *SQLiteStore) EnqueuePending(ctx context.Context, kind, localID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_entities (local_id, kind, payload, attempts, last_error, created_at)
		VALUES (?, ?, ?, 0, '', ?)`,
		localID, kind, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enqueue pending %s %s: %w", kind, localID, err)
	}
	return nil
}

// PendingEntities returns up to limit unreconciled entities, oldest first.
func (s *SQLiteStore) PendingEntities(ctx context.Context, limit int) ([]PendingEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT local_id, kind, payload, attempts, last_error, created_at
		FROM pending_entities
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending entities: %w", err)
	}
	defer rows.Close()

	var pending []PendingEntity
	for rows.Next() {
		var e PendingEntity
		if err := rows.Scan(&e.LocalID, &e.Kind, &e.Payload, &e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending entity: %w", err)
		}
		pending = append(pending, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending entities: %w", err)
	}
	return pending, nil
}

// MarkReconciled removes a successfully replayed entity from the queue.
func (s *SQLiteStore) MarkReconciled(ctx context.Context, localID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_entities WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("mark reconciled %s: %w", localID, err)
	}
	return nil
}

// MarkReconcileError records a failed replay attempt, keeping the entity in
// the queue for a retry.
func (s *SQLiteStore) MarkReconcileError(ctx context.Context, localID, message string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE pending_entities
		SET attempts = attempts + 1, last_error = ?
		WHERE local_id = ?`, message, localID); err != nil {
		return fmt.Errorf("mark reconcile error %s: %w", localID, err)
	}
	return nil
}

// PendingCount returns the number of entities waiting for reconciliation.
func (s *SQLiteStore) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_entities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending entities: %w", err)
	}
	return count, nil
}

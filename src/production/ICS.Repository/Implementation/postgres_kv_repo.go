package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
)

type PostgresKVStore struct {
	db *sql.DB
}

func NewPostgresKVStore(db *sql.DB) *PostgresKVStore {
	return &PostgresKVStore{db: db}
}

// CreateTables creates the key-value table if it doesn't exist
func (s *PostgresKVStore) CreateTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	createKVTable := `
		CREATE TABLE IF NOT EXISTS kv_store (
			key         TEXT PRIMARY KEY,
			value       JSONB NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`

	if _, err := s.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

func (s *PostgresKVStore) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, interfaces.NewStoreError("get", key, err)
	}

	if err := decodeValue(raw, dst); err != nil {
		return false, interfaces.NewStoreError("get", key, err)
	}
	return true, nil
}

// Put upserts the value
func (s *PostgresKVStore) Put(ctx context.Context, key string, value interface{}) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	raw, err := encodeValue(value)
	if err != nil {
		return interfaces.NewStoreError("put", key, err)
	}

	if _, err := s.db.ExecContext(ctx, query, key, raw, time.Now().UTC()); err != nil {
		return interfaces.NewStoreError("put", key, err)
	}
	return nil
}

func (s *PostgresKVStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return interfaces.NewStoreError("delete", key, err)
	}
	return nil
}

func (s *PostgresKVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT key FROM kv_store WHERE key LIKE $1 ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, interfaces.NewStoreError("keys", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, interfaces.NewStoreError("keys", prefix, err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, interfaces.NewStoreError("keys", prefix, err)
	}
	return keys, nil
}

func (s *PostgresKVStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.PingContext(ctx)
}

func (s *PostgresKVStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

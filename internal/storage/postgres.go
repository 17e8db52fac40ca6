package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
)

// PostgresStore maps the blob contract onto a single key/value table. No
// relational features beyond the primary key are used; prefix listing is a
// LIKE scan over the key column. Exists for deployments that have Postgres
// and nothing else.
type PostgresStore struct {
	log  *logger.Logger
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS objects (
	key        TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func NewPostgresStore(ctx context.Context, log *logger.Logger, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{
		log:  log.With("store", "PostgresStore"),
		pool: pool,
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO objects (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, data)
	if err != nil {
		return storeErr("put", key, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM objects WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, storeErr("get", key, err)
	}
	return data, nil
}

func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM objects WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, storeErr("stat", key, err)
	}
	return exists, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM objects WHERE key = $1`, key)
	if err != nil {
		return false, storeErr("delete", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	// Escape LIKE metacharacters so a literal prefix never widens the scan.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.pool.Query(ctx, `SELECT key FROM objects WHERE key LIKE $1 ORDER BY key`, escaped+"%")
	if err != nil {
		return nil, storeErr("list", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, storeErr("list", prefix, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", prefix, err)
	}
	return keys, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

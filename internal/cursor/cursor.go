// Package cursor persists per-table synchronization progress.
//
// One row per (cluster, table, cursor column) in etl_state records the last
// successfully committed cursor value. This is the only durable state the
// sync core owns beyond the market data itself.
package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStorageUnavailable indicates the backing store cannot be reached.
// Fatal to the current run: callers must never guess a cursor.
var ErrStorageUnavailable = errors.New("cursor storage unavailable")

// Store reads and writes cursor rows in the master cluster's etl_state table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a cursor store backed by the master pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the cursor value for (cluster, table, column). The second
// return is false when no cursor row exists yet.
func (s *Store) Get(ctx context.Context, cluster, table, column string) (string, bool, error) {
	var value *string
	err := s.pool.QueryRow(ctx,
		`SELECT cursor_value FROM etl_state
		 WHERE cluster = $1 AND table_name = $2 AND cursor_col = $3`,
		cluster, table, column,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s/%s/%s: %v", ErrStorageUnavailable, cluster, table, column, err)
	}
	if value == nil || *value == "" {
		return "", false, nil
	}
	return *value, true, nil
}

// Set overwrites the cursor value for (cluster, table, column). Last writer
// wins; the single-row upsert keeps the write atomic with respect to
// concurrent readers of the same key.
func (s *Store) Set(ctx context.Context, cluster, table, column, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl_state (cluster, table_name, cursor_col, cursor_value, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (cluster, table_name, cursor_col)
		 DO UPDATE SET cursor_value = EXCLUDED.cursor_value, updated_at = now()`,
		cluster, table, column, value,
	)
	if err != nil {
		return fmt.Errorf("%w: set %s/%s/%s: %v", ErrStorageUnavailable, cluster, table, column, err)
	}
	return nil
}

// Reset deletes the cursor row for (cluster, table, column). Operator action
// only; the sync core never deletes cursors.
func (s *Store) Reset(ctx context.Context, cluster, table, column string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM etl_state WHERE cluster = $1 AND table_name = $2 AND cursor_col = $3`,
		cluster, table, column,
	)
	if err != nil {
		return fmt.Errorf("%w: reset %s/%s/%s: %v", ErrStorageUnavailable, cluster, table, column, err)
	}
	return nil
}

package syncer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBCodeSource reads the active security universe from the synced
// stock_basic table on the master cluster.
type DBCodeSource struct {
	pool *pgxpool.Pool
}

func NewDBCodeSource(pool *pgxpool.Pool) *DBCodeSource {
	return &DBCodeSource{pool: pool}
}

// ActiveCodes returns listed security codes in stable order. Stable order
// keeps per-code chunk boundaries consistent between runs.
func (s *DBCodeSource) ActiveCodes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ts_code FROM stock_basic WHERE list_status = 'L' ORDER BY ts_code`)
	if err != nil {
		return nil, fmt.Errorf("query security universe: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

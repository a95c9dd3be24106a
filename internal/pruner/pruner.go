// Package pruner deletes rows that have fallen out of a table's retention
// window. Deletes run in bounded chunks so a large backlog never holds one
// long transaction or starves concurrent writers.
package pruner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/marketsync/internal/database"
	"github.com/rickgao/marketsync/internal/model"
)

// Pruner removes expired rows from retention-bounded tables.
type Pruner struct {
	pools     *database.Pools
	chunkRows int
	retries   int
	backoff   time.Duration
	logger    *slog.Logger
}

// New creates a Pruner. chunkRows bounds rows deleted per statement.
func New(pools *database.Pools, chunkRows int, logger *slog.Logger) *Pruner {
	if chunkRows <= 0 {
		chunkRows = 20000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		pools:     pools,
		chunkRows: chunkRows,
		retries:   3,
		backoff:   time.Second,
		logger:    logger,
	}
}

// Prune deletes all rows of the table strictly older than the cutoff date.
// The cutoff day itself is always retained: date columns compare against the
// cutoff date, timestamp columns against the cutoff's midnight, so intraday
// rows on the cutoff day survive. Sharded tables are pruned on every shard.
// Returns the total rows deleted.
func (p *Pruner) Prune(ctx context.Context, spec model.TableSpec, cutoff time.Time) (int64, error) {
	if !spec.HasRetention() {
		return 0, nil
	}

	bound := cutoffBound(spec, cutoff)
	sql := deleteSQL(spec, p.chunkRows)

	targets := []*pgxpool.Pool{p.pools.Master}
	if spec.Sharded {
		targets = p.pools.Shards
		if len(targets) == 0 {
			return 0, fmt.Errorf("table %s is sharded but no shard pools are configured", spec.Name)
		}
	}

	var total int64
	for i, pool := range targets {
		deleted, err := p.pruneOne(ctx, pool, spec.Name, sql, bound)
		total += deleted
		if err != nil {
			if spec.Sharded {
				return total, fmt.Errorf("shard %d: %w", i, err)
			}
			return total, err
		}
	}

	p.logger.Info("retention prune complete",
		"table", spec.Name,
		"cutoff", model.FormatDate(cutoff),
		"deleted", total,
	)
	return total, nil
}

// cutoffBound produces the bind value the delete compares against. Date
// columns take the formatted cutoff date; timestamp columns take the
// cutoff's midnight so intraday rows on the cutoff day are kept.
func cutoffBound(spec model.TableSpec, cutoff time.Time) any {
	if spec.TimeKind == model.KindTimestamp {
		return model.Date(cutoff.Year(), cutoff.Month(), cutoff.Day())
	}
	return model.FormatDate(cutoff)
}

func deleteSQL(spec model.TableSpec, chunkRows int) string {
	return fmt.Sprintf(
		"DELETE FROM %s WHERE ctid IN (SELECT ctid FROM %s WHERE %s < $1 LIMIT %d)",
		spec.Name, spec.Name, spec.TimeField, chunkRows,
	)
}

// pruneOne loops chunked deletes on one pool until a chunk comes back short.
func (p *Pruner) pruneOne(ctx context.Context, pool *pgxpool.Pool, table, sql string, bound any) (int64, error) {
	var total int64
	for {
		deleted, err := p.deleteChunk(ctx, pool, sql, bound)
		total += deleted
		if err != nil {
			return total, err
		}
		if deleted > 0 {
			p.logger.Debug("pruned chunk", "table", table, "deleted", deleted)
		}
		if deleted < int64(p.chunkRows) {
			return total, nil
		}
	}
}

func (p *Pruner) deleteChunk(ctx context.Context, pool *pgxpool.Pool, sql string, bound any) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(p.backoff * time.Duration(1<<(attempt-1))):
			}
		}
		ct, err := pool.Exec(ctx, sql, bound)
		if err == nil {
			return ct.RowsAffected(), nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("chunked delete failed after %d attempts: %w", p.retries, lastErr)
}

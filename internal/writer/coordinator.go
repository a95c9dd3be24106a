package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/marketsync/internal/database"
	"github.com/rickgao/marketsync/internal/model"
	"github.com/rickgao/marketsync/internal/shard"
)

// RejectedError marks a row the database refused on data grounds
// (constraint or type violation). Retrying the same batch cannot succeed.
type RejectedError struct {
	Table string
	Err   error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("row rejected by %s: %v", e.Table, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// Result reports the outcome of one Write call.
type Result struct {
	Written int64
	Skipped int64
}

func (r *Result) add(other Result) {
	r.Written += other.Written
	r.Skipped += other.Skipped
}

// Coordinator routes normalized rows to the master or the minute shards and
// writes them in bounded transactional batches.
type Coordinator struct {
	pools     *database.Pools
	batchSize int
	retries   int
	backoff   time.Duration
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator. batchSize bounds the rows per
// transaction; retries bounds attempts per batch on transient failure.
func NewCoordinator(pools *database.Pools, batchSize, retries int, logger *slog.Logger) *Coordinator {
	if batchSize <= 0 {
		batchSize = 2000
	}
	if retries <= 0 {
		retries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		pools:     pools,
		batchSize: batchSize,
		retries:   retries,
		backoff:   time.Second,
		logger:    logger,
	}
}

// Write persists rows for one table. Sharded tables fan out to all target
// shards concurrently; for other tables everything goes to the master pool.
// On error the returned Result still covers batches that committed before
// the failure.
func (c *Coordinator) Write(ctx context.Context, spec model.TableSpec, mode Mode, rows []model.MarketRow) (Result, error) {
	if len(rows) == 0 {
		return Result{}, nil
	}

	sql := buildSQL(spec, mode)

	if !spec.Sharded {
		return c.writeToPool(ctx, c.pools.Master, spec, sql, rows)
	}

	n := c.pools.ShardCount()
	if n == 0 {
		return Result{}, fmt.Errorf("table %s is sharded but no shard pools are configured", spec.Name)
	}

	groups := make([][]model.MarketRow, n)
	for _, row := range rows {
		idx := shard.Route(row.SecurityID, n)
		groups[idx] = append(groups[idx], row)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		total    Result
		firstErr error
	)
	for i, group := range groups {
		if len(group) == 0 {
			continue
		}
		wg.Add(1)
		go func(idx int, group []model.MarketRow) {
			defer wg.Done()
			res, err := c.writeToPool(ctx, c.pools.Shards[idx], spec, sql, group)
			mu.Lock()
			defer mu.Unlock()
			total.add(res)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("shard %d: %w", idx, err)
			}
		}(i, group)
	}
	wg.Wait()

	return total, firstErr
}

// writeToPool writes rows to a single pool in batches of batchSize, each in
// its own transaction.
func (c *Coordinator) writeToPool(ctx context.Context, pool *pgxpool.Pool, spec model.TableSpec, sql string, rows []model.MarketRow) (Result, error) {
	var total Result
	for start := 0; start < len(rows); start += c.batchSize {
		end := start + c.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		res, err := c.writeBatch(ctx, pool, spec, sql, rows[start:end])
		total.add(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// writeBatch commits one transactional batch, retrying transient failures.
func (c *Coordinator) writeBatch(ctx context.Context, pool *pgxpool.Pool, spec model.TableSpec, sql string, rows []model.MarketRow) (Result, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))
			c.logger.Warn("retrying batch write",
				"table", spec.Name,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		res, err := c.execBatch(ctx, pool, spec, sql, rows)
		if err == nil {
			c.logger.Debug("batch committed",
				"table", spec.Name,
				"rows", len(rows),
				"written", res.Written,
				"skipped", res.Skipped,
				"duration", time.Since(start),
			)
			return res, nil
		}

		if isRejection(err) {
			return Result{}, &RejectedError{Table: spec.Name, Err: err}
		}
		lastErr = err
	}
	return Result{}, fmt.Errorf("batch write to %s failed after %d attempts: %w", spec.Name, c.retries, lastErr)
}

func (c *Coordinator) execBatch(ctx context.Context, pool *pgxpool.Pool, spec model.TableSpec, sql string, rows []model.MarketRow) (Result, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(sql, rowArgs(spec, row)...)
	}

	results := tx.SendBatch(ctx, batch)
	var res Result
	for range rows {
		ct, err := results.Exec()
		if err != nil {
			results.Close()
			return Result{}, err
		}
		if ct.RowsAffected() == 0 {
			res.Skipped++
		} else {
			res.Written++
		}
	}
	if err := results.Close(); err != nil {
		return Result{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}
	return res, nil
}

// isRejection reports whether the error is a data-level rejection that no
// retry can fix. SQLSTATE classes: 22 data exception, 23 integrity
// constraint violation, 42 syntax error or access rule violation.
func isRejection(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code[:2] {
	case "22", "23", "42":
		return true
	}
	return false
}

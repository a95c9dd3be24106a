package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/marketsync/internal/config"
)

// Pools holds database connections for a syncer.
type Pools struct {
	// Master holds reference/daily tables, trade_cal, and etl_state.
	Master *pgxpool.Pool

	// Shards hold the minute-bar table, indexed by shard router output.
	Shards []*pgxpool.Pool
}

// NewPools creates connection pools for the master cluster and every shard.
func NewPools(ctx context.Context, cfg config.DatabaseConfig) (*Pools, error) {
	master, err := Connect(ctx, cfg.Master, "master")
	if err != nil {
		return nil, fmt.Errorf("connect master: %w", err)
	}

	shards := make([]*pgxpool.Pool, 0, len(cfg.Shards))
	for i, sc := range cfg.Shards {
		p, err := Connect(ctx, sc, fmt.Sprintf("shard%d", i))
		if err != nil {
			master.Close()
			for _, s := range shards {
				s.Close()
			}
			return nil, fmt.Errorf("connect shard %d: %w", i, err)
		}
		shards = append(shards, p)
	}

	return &Pools{
		Master: master,
		Shards: shards,
	}, nil
}

// Connect creates a single connection pool for the named role.
func Connect(ctx context.Context, cfg config.DBConfig, role string) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg, role)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// ShardCount returns the number of shard clusters in the topology.
func (p *Pools) ShardCount() int { return len(p.Shards) }

// Close closes all connection pools.
func (p *Pools) Close() {
	if p.Master != nil {
		p.Master.Close()
	}
	for _, s := range p.Shards {
		if s != nil {
			s.Close()
		}
	}
}

// Ping verifies all connections are healthy.
func (p *Pools) Ping(ctx context.Context) error {
	if err := p.Master.Ping(ctx); err != nil {
		return fmt.Errorf("ping master: %w", err)
	}
	for i, s := range p.Shards {
		if err := s.Ping(ctx); err != nil {
			return fmt.Errorf("ping shard %d: %w", i, err)
		}
	}
	return nil
}

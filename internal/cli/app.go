package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/marketsync/internal/calendar"
	"github.com/rickgao/marketsync/internal/config"
	"github.com/rickgao/marketsync/internal/cursor"
	"github.com/rickgao/marketsync/internal/database"
	"github.com/rickgao/marketsync/internal/provider"
	"github.com/rickgao/marketsync/internal/pruner"
	"github.com/rickgao/marketsync/internal/ratelimit"
	"github.com/rickgao/marketsync/internal/syncer"
	"github.com/rickgao/marketsync/internal/writer"
)

// app holds the wired collaborators every command needs.
type app struct {
	cfg    *config.SyncerConfig
	pools  *database.Pools
	cal    *calendar.Service
	runner *syncer.Runner
	pruner *pruner.Pruner
	logger *slog.Logger
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	logger := slog.Default()

	cfg, err := config.LoadAndValidate(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pools, err := database.NewPools(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect databases: %w", err)
	}

	prov := provider.NewClient(cfg.Provider.BaseURL,
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithRetries(cfg.Provider.MaxRetries, cfg.Provider.RetryBackoff),
		provider.WithPageSize(cfg.Provider.PageSize),
		provider.WithLimiter(ratelimit.New(cfg.Provider.MaxCallsPerMinute)),
		provider.WithLogger(logger),
	)

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		pools.Close()
		return nil, fmt.Errorf("load sync timezone %q: %w", cfg.Sync.Timezone, err)
	}

	cal := calendar.New(pools.Master, loc)
	cursors := cursor.NewStore(pools.Master)
	wr := writer.NewCoordinator(pools, cfg.Sync.BatchSize, cfg.Sync.WriteRetries, logger)
	pr := pruner.New(pools, cfg.Sync.PruneChunkRows, logger)
	codes := syncer.NewDBCodeSource(pools.Master)

	runner, err := syncer.New(cal, cursors, prov, wr, pr, codes, cfg.Instance.ID, cfg.Sync, logger)
	if err != nil {
		pools.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		pools:  pools,
		cal:    cal,
		runner: runner,
		pruner: pr,
		logger: logger,
	}, nil
}

func (a *app) Close() {
	a.pools.Close()
}

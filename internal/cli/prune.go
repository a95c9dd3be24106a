package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// PruneOptions holds flags for the prune command.
type PruneOptions struct {
	*RootOptions
	Tables string
}

// NewPruneCommand creates the prune command. It runs only the retention
// phase, for operators who want deletes decoupled from fetches.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PruneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "prune",
		Short:         "Apply retention windows without fetching",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tables, "tables", "all", "comma-separated table names, or all")

	return cmd
}

func runPrune(ctx context.Context, opts *PruneOptions) error {
	specs, err := selectTables(opts.Tables)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	failed := 0
	for _, spec := range specs {
		if !spec.HasRetention() {
			continue
		}
		end, err := app.cal.LastClosedOpenDate(ctx, spec.Exchange, time.Now(), app.cfg.Sync.CloseBuffer)
		if err != nil {
			app.logger.Error("prune skipped", "table", spec.Name, "error", err)
			failed++
			continue
		}
		cutoff, err := app.cal.CutoffFor(ctx, spec.Exchange, end, spec.KeepOpenDays)
		if err != nil {
			app.logger.Error("prune skipped", "table", spec.Name, "error", err)
			failed++
			continue
		}
		deleted, err := app.pruner.Prune(ctx, spec, cutoff)
		if err != nil {
			app.logger.Error("prune failed", "table", spec.Name, "deleted", deleted, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d prune passes failed", failed)
	}
	return nil
}

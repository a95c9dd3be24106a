package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/rickgao/marketsync/internal/registry"
	"github.com/rickgao/marketsync/internal/syncer"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	At       string
	Timezone string
}

// NewScheduleCommand creates the schedule command: a resident process that
// runs a full update once per day after the session close.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run a full daily sync on a fixed time of day",
		Long: `Stay resident and run "update --tables all" every day at the
given wall-clock time. Pick a time safely after the session close so the
last trading day is final when the run starts.

Example:
  syncer schedule --at 16:30 --tz Asia/Shanghai`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "16:30", "daily run time (HH:MM)")
	cmd.Flags().StringVar(&opts.Timezone, "tz", "Asia/Shanghai", "IANA timezone for --at")

	return cmd
}

func runSchedule(ctx context.Context, opts *ScheduleOptions) error {
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return fmt.Errorf("invalid --tz %q: %w", opts.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	sched := gocron.NewScheduler(loc)
	_, err = sched.Every(1).Day().At(opts.At).Do(func() {
		app.logger.Info("scheduled sync starting", "at", opts.At)
		reports := app.runner.RunAll(ctx, registry.All(), syncer.Options{})
		failed := 0
		for _, rep := range reports {
			if !rep.Succeeded() {
				failed++
			}
		}
		app.logger.Info("scheduled sync finished", "tables", len(reports), "failed", failed)
	})
	if err != nil {
		return fmt.Errorf("register daily job: %w", err)
	}

	app.logger.Info("scheduler started", "at", opts.At, "tz", opts.Timezone)
	sched.StartAsync()
	<-ctx.Done()
	sched.Stop()
	app.logger.Info("scheduler stopped")
	return nil
}

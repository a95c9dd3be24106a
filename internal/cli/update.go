package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/marketsync/internal/model"
	"github.com/rickgao/marketsync/internal/registry"
	"github.com/rickgao/marketsync/internal/syncer"
	"github.com/rickgao/marketsync/internal/writer"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Tables       string
	Since        string
	Until        string
	LookbackDays int
	WriteMode    string
	NoDelete     bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run an incremental sync for one or more tables",
		Long: `Run each selected table forward from its cursor to the last
closed trading day, then apply its retention window. One JSON report per
table is written to stdout.

Example:
  syncer update --tables all
  syncer update --tables daily_raw,adj_factor --lookback-days 3
  syncer update --tables minute_5m --since 2024-01-02 --until 2024-01-31`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tables, "tables", "all", "comma-separated table names, or all")
	cmd.Flags().StringVar(&opts.Since, "since", "", "override start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Until, "until", "", "override end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.LookbackDays, "lookback-days", 0, "re-read this many open trading days before the cursor")
	cmd.Flags().StringVar(&opts.WriteMode, "write-mode", "upsert", "conflict policy: upsert or insert-ignore")
	cmd.Flags().BoolVar(&opts.NoDelete, "no-delete", false, "skip the retention phase")

	return cmd
}

func runUpdate(ctx context.Context, opts *UpdateOptions) error {
	runOpts, err := buildRunOptions(opts)
	if err != nil {
		return err
	}
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

	reports := app.runner.RunAll(ctx, specs, runOpts)

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, rep := range reports {
		if err := enc.Encode(rep); err != nil {
			return err
		}
		if !rep.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d table runs failed", failed, len(reports))
	}
	return nil
}

func buildRunOptions(opts *UpdateOptions) (syncer.Options, error) {
	var out syncer.Options

	mode, err := writer.ParseMode(opts.WriteMode)
	if err != nil {
		return out, err
	}
	out.Mode = mode
	out.LookbackDays = opts.LookbackDays
	out.NoDelete = opts.NoDelete

	if opts.Since != "" {
		d, err := parseDateFlag("since", opts.Since)
		if err != nil {
			return out, err
		}
		out.Since = &d
	}
	if opts.Until != "" {
		d, err := parseDateFlag("until", opts.Until)
		if err != nil {
			return out, err
		}
		out.Until = &d
	}
	return out, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	d, err := model.ParseCursorDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, value)
	}
	return d, nil
}

// selectTables resolves the --tables flag against the registry, preserving
// registry order so trade_cal always runs before tables that read it.
func selectTables(flag string) ([]model.TableSpec, error) {
	if flag == "all" || flag == "" {
		return registry.All(), nil
	}

	wanted := make(map[string]bool)
	for _, name := range strings.Split(flag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := registry.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown table %q (known: %s)", name, strings.Join(registry.Names(), ", "))
		}
		wanted[name] = true
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("no tables selected")
	}

	var specs []model.TableSpec
	for _, spec := range registry.All() {
		if wanted[spec.Name] {
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

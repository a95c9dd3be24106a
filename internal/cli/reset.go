package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/marketsync/internal/cursor"
	"github.com/rickgao/marketsync/internal/registry"
)

// NewResetCursorCommand creates the reset-cursor command. Dropping a cursor
// makes the next update re-run the table from scratch (epoch or retention
// cutoff); the data itself is untouched.
func NewResetCursorCommand(rootOpts *RootOptions) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:           "reset-cursor",
		Short:         "Delete a table's sync cursor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetCursor(cmd.Context(), rootOpts, table)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "table whose cursor to drop (required)")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runResetCursor(ctx context.Context, rootOpts *RootOptions, table string) error {
	spec, ok := registry.Lookup(table)
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	if spec.CursorColumn == "" {
		return fmt.Errorf("table %q is not cursor-tracked", table)
	}

	app, err := newApp(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	store := cursor.NewStore(app.pools.Master)
	if err := store.Reset(ctx, app.cfg.Instance.ID, spec.Name, spec.CursorColumn); err != nil {
		return err
	}
	app.logger.Info("cursor reset", "table", spec.Name, "cursor_col", spec.CursorColumn)
	return nil
}

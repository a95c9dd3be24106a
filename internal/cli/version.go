package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/marketsync/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("syncer", version.String())
		},
	}
}

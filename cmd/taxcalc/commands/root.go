package commands

import (
	"github.com/spf13/cobra"
)

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree; flag state is not shared
// between trees.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "taxcalc",
		Short:        "Compute income tax and GST from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(computeCmd(), reportCmd())
	return root
}

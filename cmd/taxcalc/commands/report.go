package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxdash/internal/report"
)

// report: write the plain-text report to a file, or stdout with "-".
func reportCmd() *cobra.Command {
	var (
		flags  formFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the plain-text tax report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			r := report.Build(form)

			if output == "-" {
				return r.WriteText(cmd.OutOrStdout())
			}
			fh, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create report: %w", err)
			}
			if err := r.WriteText(fh); err != nil {
				fh.Close()
				return fmt.Errorf("write report: %w", err)
			}
			if err := fh.Close(); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", report.Filename, `report path, "-" for stdout`)
	return cmd
}

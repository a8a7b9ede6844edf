package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taxdash/internal/core"
	"taxdash/internal/report"
)

type computeOutput struct {
	TaxableIncome float64 `json:"taxableIncome"`
	Tax           float64 `json:"tax"`
	GST           float64 `json:"gst"`
	MarginalRate  float64 `json:"marginalRate"`
}

func marginalRate(r report.Report) float64 {
	return core.MarginalRate(r.Result.TaxableIncome)
}

// compute: print the result as a table or JSON.
func computeCmd() *cobra.Command {
	var (
		flags  formFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Print taxable income, income tax and GST",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			r := report.Build(form)
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(computeOutput{
					TaxableIncome: r.Result.TaxableIncome,
					Tax:           r.Result.Tax,
					GST:           r.Result.GST,
					MarginalRate:  marginalRate(r),
				})
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Income\t%s\n", report.Amount(form.Income))
			fmt.Fprintf(tw, "Deductions\t%s\n", report.Amount(form.Deductions.Total()))
			fmt.Fprintf(tw, "Taxable Income\t%s\n", report.Rupees(r.Result.TaxableIncome))
			fmt.Fprintf(tw, "Income Tax\t%s\n", report.Rupees(r.Result.Tax))
			fmt.Fprintf(tw, "Marginal Rate\t%s%%\n", report.Fixed2(marginalRate(r)*100))
			fmt.Fprintf(tw, "GST on Expenditure\t%s\n", report.Rupees(r.Result.GST))
			return tw.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

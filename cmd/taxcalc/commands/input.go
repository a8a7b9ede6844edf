package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taxdash/internal/core"
)

// formFlags are the inputs shared by every subcommand.
type formFlags struct {
	file string
	form core.FormData
}

func (f *formFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "file", "f", "", "read the form from a JSON document")
	fs.StringVar(&f.form.Name, "name", "", "taxpayer name")
	fs.IntVar(&f.form.Age, "age", 0, "taxpayer age")
	fs.StringVar(&f.form.PAN, "pan", "", "PAN, e.g. ABCDE1234F")
	fs.Float64Var(&f.form.Income, "income", 0, "annual income")
	fs.Float64Var(&f.form.Expenditure, "expenditure", 0, "expenditure subject to GST")
	fs.Float64Var(&f.form.Deductions.Section80C, "80c", 0, "Section 80C deduction")
	fs.Float64Var(&f.form.Deductions.Section80D, "80d", 0, "Section 80D deduction")
	fs.Float64Var(&f.form.Deductions.Others, "others", 0, "other deductions")
}

// resolve merges the file (if any) with explicitly set flags, then cleans
// and validates the result.
func (f *formFlags) resolve(cmd *cobra.Command) (core.FormData, error) {
	form := f.form
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return core.FormData{}, fmt.Errorf("read form file: %w", err)
		}
		fromFile, err := core.DecodeFormData(data)
		if err != nil {
			return core.FormData{}, err
		}
		form = overlay(cmd, fromFile, f.form)
	}

	form.Profile = form.Profile.Clean()
	form.TaxInput = form.TaxInput.Normalize()
	if err := form.Profile.Validate(); err != nil {
		return core.FormData{}, fmt.Errorf("invalid profile: %w", err)
	}
	return form, nil
}

func overlay(cmd *cobra.Command, base, flags core.FormData) core.FormData {
	changed := cmd.Flags().Changed
	if changed("name") {
		base.Name = flags.Name
	}
	if changed("age") {
		base.Age = flags.Age
	}
	if changed("pan") {
		base.PAN = flags.PAN
	}
	if changed("income") {
		base.Income = flags.Income
	}
	if changed("expenditure") {
		base.Expenditure = flags.Expenditure
	}
	if changed("80c") {
		base.Deductions.Section80C = flags.Deductions.Section80C
	}
	if changed("80d") {
		base.Deductions.Section80D = flags.Deductions.Section80D
	}
	if changed("others") {
		base.Deductions.Others = flags.Deductions.Others
	}
	return base
}

// Package report renders calculation results for people: the downloadable
// plain-text tax report and the chart series shown on the dashboard.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"taxdash/internal/core"
)

// Filename is the name offered for the downloaded report.
const Filename = "TaxReport.txt"

const currency = "₹"

// Report pairs a form with the result computed from it.
type Report struct {
	Form        core.FormData
	Result      core.TaxResult
	GeneratedAt time.Time
}

// Build computes the result for f.
func Build(f core.FormData) Report {
	return BuildAt(f, time.Now())
}

// BuildAt is Build with an explicit timestamp.
func BuildAt(f core.FormData, at time.Time) Report {
	return Report{
		Form:        f,
		Result:      f.Result(),
		GeneratedAt: at.UTC(),
	}
}

// WriteText writes the plain-text report. Inputs are printed as entered,
// computed figures with two decimals.
func (r Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	lines := []string{
		"Tax Report",
		strings.Repeat("-", 20),
		"Name: " + r.Form.Name,
		"Income: " + Amount(r.Form.Income),
		"Expenditure: " + Amount(r.Form.Expenditure),
		"Age: " + fmt.Sprint(r.Form.Age),
		"PAN: " + r.Form.PAN,
		"Deductions:",
		"  Section 80C: " + Amount(r.Form.Deductions.Section80C),
		"  Section 80D: " + Amount(r.Form.Deductions.Section80D),
		"  Others: " + Amount(r.Form.Deductions.Others),
		"",
		"Taxable Income: " + Rupees(r.Result.TaxableIncome),
		"Income Tax: " + Rupees(r.Result.Tax),
		"GST on Expenditure: " + Rupees(r.Result.GST),
	}
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// Text returns the report as a string.
func (r Report) Text() string {
	var sb strings.Builder
	_ = r.WriteText(&sb)
	return sb.String()
}

// Rupees formats v with the currency symbol, rounded half away from zero
// to two decimals.
func Rupees(v float64) string {
	return currency + Fixed2(v)
}

// Fixed2 formats v with exactly two decimals.
func Fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Amount formats an entered value without padding decimals.
func Amount(v float64) string {
	return currency + decimal.NewFromFloat(v).String()
}

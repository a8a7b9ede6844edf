package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"taxdash/internal/report"
)

// ReportWriter appends one exported report per call.
type ReportWriter interface {
	AppendReport(ctx context.Context, key string, r report.Report) (rowRef string, err error)
}

// Header names the columns written by ReportRow.
var Header = []any{"Timestamp", "Key", "Name", "PAN", "Income", "Expenditure", "Taxable Income", "Income Tax", "GST"}

// ReportRow lays out r for a spreadsheet row. Money columns are rounded to
// two decimals.
func ReportRow(key string, r report.Report) []any {
	return []any{
		r.GeneratedAt.UTC().Format(time.RFC3339),
		key,
		r.Form.Name,
		r.Form.PAN,
		round2(r.Form.Income),
		round2(r.Form.Expenditure),
		round2(r.Result.TaxableIncome),
		round2(r.Result.Tax),
		round2(r.Result.GST),
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

package report

// Point is one labelled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Charts holds the two dashboard series.
type Charts struct {
	Bar []Point `json:"bar"`
	Pie []Point `json:"pie"`
}

const (
	colorGreen  = "#4CAF50"
	colorOrange = "#FF9800"
	colorBlue   = "#2196F3"
	colorRed    = "#F44336"
	colorPurple = "#9C27B0"
)

// Charts returns the financial breakdown bar series and the pie series.
// Taxable income is left out of the pie since it overlaps income.
func (r Report) Charts() Charts {
	f, res := r.Form, r.Result
	return Charts{
		Bar: []Point{
			{Label: "Income", Value: f.Income, Color: colorGreen},
			{Label: "Expenditure", Value: f.Expenditure, Color: colorOrange},
			{Label: "Taxable Income", Value: res.TaxableIncome, Color: colorBlue},
			{Label: "Income Tax", Value: res.Tax, Color: colorRed},
			{Label: "GST", Value: res.GST, Color: colorPurple},
		},
		Pie: []Point{
			{Label: "Income", Value: f.Income, Color: colorGreen},
			{Label: "Expenditure", Value: f.Expenditure, Color: colorOrange},
			{Label: "Income Tax", Value: res.Tax, Color: colorRed},
			{Label: "GST", Value: res.GST, Color: colorBlue},
		},
	}
}

// Max returns the largest value in the series, used to scale bars.
func Max(points []Point) float64 {
	var m float64
	for _, p := range points {
		if p.Value > m {
			m = p.Value
		}
	}
	return m
}

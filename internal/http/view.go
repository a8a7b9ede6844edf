package http

import (
	"strconv"

	"taxdash/internal/core"
	"taxdash/internal/report"
)

// Bar chart viewBox size in SVG user units.
const (
	barChartWidth  = 500.0
	barChartHeight = 220.0
	barGap         = 24.0
)

// pieRadius gives the pie circle a circumference of 100, so a slice's
// dash length is its percentage.
const pieRadius = 15.91549430918954

type dashboardView struct {
	Form    core.FormData
	Inputs  inputsView
	Result  resultView
	Charts  chartsView
	Data    report.Charts
	Version int64
	Notice  string
}

// inputsView holds the numeric inputs as text; zero renders as empty.
type inputsView struct {
	Age, Income, Expenditure, Section80C, Section80D, Others string
}

type resultView struct {
	TaxableIncome, Tax, GST string
	TotalDeductions         string
}

type barView struct {
	Label, Amount, Color string
	X, Y, Width, Height  string
	LabelX               string
}

type sliceView struct {
	Label, Amount, Color  string
	Percent               string
	DashArray, DashOffset string
}

type chartsView struct {
	Width, Height string
	Bars          []barView
	Slices        []sliceView
	PieRadius     string
	PieEmpty      bool
}

func newDashboardView(f core.FormData, version int64) dashboardView {
	r := report.Build(f)
	c := r.Charts()
	return dashboardView{
		Form: f,
		Inputs: inputsView{
			Age:         inputValue(float64(f.Age)),
			Income:      inputValue(f.Income),
			Expenditure: inputValue(f.Expenditure),
			Section80C:  inputValue(f.Deductions.Section80C),
			Section80D:  inputValue(f.Deductions.Section80D),
			Others:      inputValue(f.Deductions.Others),
		},
		Result: resultView{
			TaxableIncome:   report.Rupees(r.Result.TaxableIncome),
			Tax:             report.Rupees(r.Result.Tax),
			GST:             report.Rupees(r.Result.GST),
			TotalDeductions: report.Rupees(f.Deductions.Total()),
		},
		Charts:  newChartsView(c),
		Data:    c,
		Version: version,
	}
}

func inputValue(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func svgNum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func newChartsView(c report.Charts) chartsView {
	v := chartsView{
		Width:     svgNum(barChartWidth),
		Height:    svgNum(barChartHeight),
		PieRadius: strconv.FormatFloat(pieRadius, 'f', -1, 64),
	}

	if n := len(c.Bar); n > 0 {
		maxValue := report.Max(c.Bar)
		slot := barChartWidth / float64(n)
		width := slot - barGap
		for i, p := range c.Bar {
			h := 0.0
			if maxValue > 0 && p.Value > 0 {
				h = p.Value / maxValue * barChartHeight
			}
			x := float64(i)*slot + barGap/2
			v.Bars = append(v.Bars, barView{
				Label:  p.Label,
				Amount: report.Rupees(p.Value),
				Color:  p.Color,
				X:      svgNum(x),
				Y:      svgNum(barChartHeight - h),
				Width:  svgNum(width),
				Height: svgNum(h),
				LabelX: svgNum(x + width/2),
			})
		}
	}

	var total float64
	for _, p := range c.Pie {
		if p.Value > 0 {
			total += p.Value
		}
	}
	if total == 0 {
		v.PieEmpty = true
		return v
	}
	// slices start at twelve o'clock and run clockwise
	offset := 25.0
	for _, p := range c.Pie {
		if p.Value <= 0 {
			continue
		}
		pct := p.Value / total * 100
		v.Slices = append(v.Slices, sliceView{
			Label:      p.Label,
			Amount:     report.Rupees(p.Value),
			Color:      p.Color,
			Percent:    strconv.FormatFloat(pct, 'f', 1, 64),
			DashArray:  svgNum(pct) + " " + svgNum(100-pct),
			DashOffset: svgNum(offset),
		})
		offset -= pct
	}
	return v
}

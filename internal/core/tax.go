package core

import "math"

// GSTRate is the flat levy applied to expenditure.
const GSTRate = 0.18

type (
	Deductions struct {
		Section80C float64
		Section80D float64
		Others     float64
	}

	TaxInput struct {
		Income      float64
		Expenditure float64
		Deductions  Deductions
	}

	// TaxResult is recomputed from a TaxInput on every change and never mutated.
	TaxResult struct {
		TaxableIncome float64
		Tax           float64
		GST           float64
	}

	// Bracket taxes the slice of income in (Lower, Upper] at Rate.
	Bracket struct {
		Lower float64
		Upper float64
		Rate  float64
	}
)

// Brackets is the progressive table, ascending. The last bracket is open-ended.
var Brackets = []Bracket{
	{Lower: 0, Upper: 250_000, Rate: 0},
	{Lower: 250_000, Upper: 500_000, Rate: 0.05},
	{Lower: 500_000, Upper: 1_000_000, Rate: 0.20},
	{Lower: 1_000_000, Upper: math.Inf(1), Rate: 0.30},
}

// Total returns the sum of all deductions.
func (d Deductions) Total() float64 {
	return d.Section80C + d.Section80D + d.Others
}

// Normalize floors every monetary field at zero and drops NaN/Inf values.
func (in TaxInput) Normalize() TaxInput {
	return TaxInput{
		Income:      nonNegative(in.Income),
		Expenditure: nonNegative(in.Expenditure),
		Deductions: Deductions{
			Section80C: nonNegative(in.Deductions.Section80C),
			Section80D: nonNegative(in.Deductions.Section80D),
			Others:     nonNegative(in.Deductions.Others),
		},
	}
}

// Compute derives taxable income, tax and GST from the input.
// It is pure: the same input always yields the same result.
func Compute(in TaxInput) TaxResult {
	in = in.Normalize()
	taxable := math.Max(0, in.Income-in.Deductions.Total())
	return TaxResult{
		TaxableIncome: taxable,
		Tax:           TaxOn(taxable),
		GST:           in.Expenditure * GSTRate,
	}
}

// TaxOn applies Brackets to a taxable amount. The base of each bracket is
// the accumulated tax of every bracket below it at its upper bound.
func TaxOn(taxable float64) float64 {
	var base float64
	for _, b := range Brackets {
		if taxable <= b.Upper {
			if taxable <= b.Lower {
				return base
			}
			return base + (taxable-b.Lower)*b.Rate
		}
		base += (b.Upper - b.Lower) * b.Rate
	}
	return base
}

// MarginalRate returns the rate of the bracket taxable falls in.
func MarginalRate(taxable float64) float64 {
	for _, b := range Brackets {
		if taxable <= b.Upper {
			return b.Rate
		}
	}
	return Brackets[len(Brackets)-1].Rate
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

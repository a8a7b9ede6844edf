package core

import (
	"math"
	"testing"
)

const epsilon = 1e-6

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name        string
		input       TaxInput
		wantTaxable float64
		wantTax     float64
		wantGST     float64
	}{
		{
			name: "deductions bring income to the second bracket boundary",
			input: TaxInput{
				Income:      600000,
				Expenditure: 100000,
				Deductions:  Deductions{Section80C: 80000, Section80D: 20000},
			},
			wantTaxable: 500000,
			wantTax:     12500,
			wantGST:     18000,
		},
		{
			name:        "income below the exempt threshold",
			input:       TaxInput{Income: 200000},
			wantTaxable: 200000,
			wantTax:     0,
			wantGST:     0,
		},
		{
			name: "top bracket",
			input: TaxInput{
				Income:      1500000,
				Expenditure: 50000,
				Deductions:  Deductions{Section80C: 150000},
			},
			wantTaxable: 1350000,
			wantTax:     217500,
			wantGST:     9000,
		},
		{
			name: "deductions exceed income",
			input: TaxInput{
				Income:     300000,
				Deductions: Deductions{Section80C: 300000, Section80D: 50000, Others: 50000},
			},
			wantTaxable: 0,
			wantTax:     0,
			wantGST:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.input)
			if !approx(got.TaxableIncome, tt.wantTaxable) {
				t.Errorf("TaxableIncome = %v, want %v", got.TaxableIncome, tt.wantTaxable)
			}
			if !approx(got.Tax, tt.wantTax) {
				t.Errorf("Tax = %v, want %v", got.Tax, tt.wantTax)
			}
			if !approx(got.GST, tt.wantGST) {
				t.Errorf("GST = %v, want %v", got.GST, tt.wantGST)
			}
		})
	}
}

func TestTaxableIncomeFloor(t *testing.T) {
	for _, income := range []float64{0, 1, 250000, 999999.5, 5e6} {
		for _, ded := range []float64{0, 1, 100000, 250000, 5e6} {
			got := Compute(TaxInput{Income: income, Deductions: Deductions{Others: ded}}).TaxableIncome
			want := income - ded
			if ded > income {
				want = 0
			}
			if !approx(got, want) {
				t.Fatalf("income=%v deductions=%v: taxable = %v, want %v", income, ded, got, want)
			}
		}
	}
}

func TestTaxOnBracketBoundaries(t *testing.T) {
	tests := []struct {
		taxable float64
		want    float64
	}{
		{0, 0},
		{249999.99, 0},
		{250000, 0},
		{250001, 0.05},
		{400000, 7500},
		{500000, 12500},
		{500001, 12500.2},
		{750000, 62500},
		{1000000, 112500},
		{1000001, 112500.3},
		{2000000, 412500},
	}
	for _, tt := range tests {
		if got := TaxOn(tt.taxable); !approx(got, tt.want) {
			t.Errorf("TaxOn(%v) = %v, want %v", tt.taxable, got, tt.want)
		}
	}
}

func TestTaxOnIsContinuous(t *testing.T) {
	for _, b := range Brackets[:len(Brackets)-1] {
		below := TaxOn(b.Upper - 1e-4)
		at := TaxOn(b.Upper)
		above := TaxOn(b.Upper + 1e-4)
		if math.Abs(at-below) > 1e-3 || math.Abs(above-at) > 1e-3 {
			t.Errorf("discontinuity at %v: below=%v at=%v above=%v", b.Upper, below, at, above)
		}
	}
}

func TestTaxIsMonotonic(t *testing.T) {
	prev := TaxOn(0)
	for taxable := 0.0; taxable <= 3_000_000; taxable += 1250 {
		got := TaxOn(taxable)
		if got < prev {
			t.Fatalf("TaxOn(%v) = %v decreased from %v", taxable, got, prev)
		}
		prev = got
	}
}

func TestGSTIsLinear(t *testing.T) {
	for _, exp := range []float64{0, 1, 100, 12345.67, 1e7} {
		got := Compute(TaxInput{Expenditure: exp}).GST
		if !approx(got, exp*GSTRate) {
			t.Errorf("GST(%v) = %v, want %v", exp, got, exp*GSTRate)
		}
	}
	a := Compute(TaxInput{Expenditure: 1000}).GST
	b := Compute(TaxInput{Expenditure: 2000}).GST
	if !approx(b-a, 1000*0.18) {
		t.Errorf("GST slope = %v, want 0.18", (b-a)/1000)
	}
}

func TestGSTIgnoresIncomeAndDeductions(t *testing.T) {
	base := Compute(TaxInput{Expenditure: 5000}).GST
	other := Compute(TaxInput{Income: 9e6, Expenditure: 5000, Deductions: Deductions{Others: 1e5}}).GST
	if base != other {
		t.Errorf("GST changed with income: %v vs %v", base, other)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	in := TaxInput{Income: 987654.32, Expenditure: 4321, Deductions: Deductions{Section80C: 150000, Section80D: 25000, Others: 1}}
	first := Compute(in)
	for i := 0; i < 10; i++ {
		if got := Compute(in); got != first {
			t.Fatalf("call %d: %+v != %+v", i, got, first)
		}
	}
}

func TestComputeFloorsNegativeInputs(t *testing.T) {
	got := Compute(TaxInput{
		Income:      -100000,
		Expenditure: -5000,
		Deductions:  Deductions{Section80C: -50000},
	})
	if got != (TaxResult{}) {
		t.Errorf("Compute with negative inputs = %+v, want zero result", got)
	}

	// A negative deduction must not inflate taxable income.
	got = Compute(TaxInput{Income: 300000, Deductions: Deductions{Others: -100000}})
	if !approx(got.TaxableIncome, 300000) {
		t.Errorf("TaxableIncome = %v, want 300000", got.TaxableIncome)
	}
}

func TestComputeDropsNonFiniteInputs(t *testing.T) {
	got := Compute(TaxInput{Income: math.NaN(), Expenditure: math.Inf(1)})
	if got != (TaxResult{}) {
		t.Errorf("Compute with NaN/Inf = %+v, want zero result", got)
	}
}

func TestMarginalRate(t *testing.T) {
	tests := []struct {
		taxable float64
		want    float64
	}{
		{0, 0},
		{250000, 0},
		{250000.01, 0.05},
		{500000, 0.05},
		{999999, 0.20},
		{1e9, 0.30},
	}
	for _, tt := range tests {
		if got := MarginalRate(tt.taxable); got != tt.want {
			t.Errorf("MarginalRate(%v) = %v, want %v", tt.taxable, got, tt.want)
		}
	}
}

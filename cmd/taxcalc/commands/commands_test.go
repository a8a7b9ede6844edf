package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestComputeTable(t *testing.T) {
	out, err := run(t, "compute", "--income", "600000", "--expenditure", "100000", "--80c", "80000", "--80d", "20000")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, want := range []string{"₹500000.00", "₹12500.00", "₹18000.00", "5.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestComputeJSON(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want computeOutput
	}{
		{"scenario B", []string{"--income", "200000"}, computeOutput{TaxableIncome: 200000}},
		{"scenario C", []string{"--income", "1500000", "--expenditure", "50000", "--80c", "150000"},
			computeOutput{TaxableIncome: 1350000, Tax: 217500, GST: 9000, MarginalRate: 0.30}},
		{"deductions exceed income", []string{"--income", "300000", "--80c", "400000"}, computeOutput{}},
		{"negative inputs are floored", []string{"--income=-5", "--expenditure=-10"}, computeOutput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"compute", "--json"}, tt.args...)...)
			if err != nil {
				t.Fatal(err)
			}
			var got computeOutput
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("bad JSON %q: %v", out, err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeFromFileWithOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.json")
	doc := `{"name":"Asha","income":"600000","expenditure":100000,"deductions":{"section80C":80000,"section80D":"20000"}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "compute", "--json", "-f", path)
	if err != nil {
		t.Fatal(err)
	}
	var got computeOutput
	json.Unmarshal([]byte(out), &got)
	if got.TaxableIncome != 500000 || got.Tax != 12500 || got.GST != 18000 {
		t.Errorf("from file: %+v", got)
	}

	out, err = run(t, "compute", "--json", "-f", path, "--expenditure", "0")
	if err != nil {
		t.Fatal(err)
	}
	json.Unmarshal([]byte(out), &got)
	if got.GST != 0 || got.TaxableIncome != 500000 {
		t.Errorf("override: %+v", got)
	}
}

func TestComputeErrors(t *testing.T) {
	if _, err := run(t, "compute", "--pan", "12345"); err == nil {
		t.Error("invalid PAN should fail")
	}
	if _, err := run(t, "compute", "--age", "151"); err == nil {
		t.Error("invalid age should fail")
	}
	if _, err := run(t, "compute", "-f", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := run(t, "compute", "extra"); err == nil {
		t.Error("positional arguments should be rejected")
	}
}

func TestReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TaxReport.txt")
	out, err := run(t, "report", "-o", path, "--name", "Asha", "--pan", "abcde1234f",
		"--income", "600000", "--expenditure", "100000", "--80c", "80000", "--80d", "20000")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"Tax Report\n", "Name: Asha\n", "PAN: ABCDE1234F\n", "Income: ₹600000\n", "Taxable Income: ₹500000.00\n", "Income Tax: ₹12500.00\n", "GST on Expenditure: ₹18000.00\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestReportToStdout(t *testing.T) {
	out, err := run(t, "report", "-o", "-", "--income", "200000")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Tax Report\n") || !strings.Contains(out, "Income Tax: ₹0.00\n") {
		t.Errorf("stdout report:\n%s", out)
	}
}

package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestProfileValidate(t *testing.T) {
	cases := []struct {
		name string
		p    Profile
		want error
	}{
		{"empty profile", Profile{}, nil},
		{"full profile", Profile{Name: "Asha", Age: 34, PAN: "ABCDE1234F"}, nil},
		{"name too long", Profile{Name: strings.Repeat("a", MaxNameLength+1)}, ErrNameTooLong},
		{"negative age", Profile{Age: -1}, ErrInvalidAge},
		{"age too high", Profile{Age: MaxAge + 1}, ErrInvalidAge},
		{"lower-case PAN", Profile{PAN: "abcde1234f"}, ErrInvalidPAN},
		{"short PAN", Profile{PAN: "ABCDE123F"}, ErrInvalidPAN},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestProfileClean(t *testing.T) {
	got := Profile{Name: "  Ravi ", Age: 40, PAN: " abcde1234f "}.Clean()
	want := Profile{Name: "Ravi", Age: 40, PAN: "ABCDE1234F"}
	if got != want {
		t.Fatalf("Clean() = %+v, want %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("cleaned profile should validate: %v", err)
	}
}

func TestDecodeFormDataLooseValues(t *testing.T) {
	doc := `{
		"name": "Meera",
		"age": "29",
		"pan": "ABCDE1234F",
		"income": "600000",
		"expenditure": 100000,
		"deductions": {"section80C": "80000", "section80D": 20000, "others": "oops"}
	}`
	got, err := DecodeFormData([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeFormData: %v", err)
	}
	want := FormData{
		Profile: Profile{Name: "Meera", Age: 29, PAN: "ABCDE1234F"},
		TaxInput: TaxInput{
			Income:      600000,
			Expenditure: 100000,
			Deductions:  Deductions{Section80C: 80000, Section80D: 20000},
		},
	}
	if got != want {
		t.Fatalf("DecodeFormData() = %+v, want %+v", got, want)
	}
	if r := got.Result(); math.Abs(r.Tax-12500) > epsilon {
		t.Fatalf("Result().Tax = %v, want 12500", r.Tax)
	}
}

func TestDecodeFormDataMissingFields(t *testing.T) {
	for _, doc := range []string{`{}`, `null`, `{"deductions": "none"}`, `{"income": null, "deductions": {}}`} {
		got, err := DecodeFormData([]byte(doc))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", doc, err)
		}
		if got != (FormData{}) {
			t.Fatalf("%s: expected zero form, got %+v", doc, got)
		}
	}
}

func TestDecodeFormDataMalformed(t *testing.T) {
	for _, doc := range []string{``, `{`, `"text"`, `[1,2]`, `{"income":1}garbage`, `{"income":1}{"income":2}`} {
		if _, err := DecodeFormData([]byte(doc)); err == nil {
			t.Fatalf("%q: expected error", doc)
		}
	}
}

func TestDecodeFormDataTrailingWhitespace(t *testing.T) {
	got, err := DecodeFormData([]byte("{\"income\": 1}\n\t "))
	if err != nil || got.Income != 1 {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestDecodeFormDataRoundsAge(t *testing.T) {
	for doc, want := range map[string]int{
		`{"age": 25.9}`:   26,
		`{"age": 25.4}`:   25,
		`{"age": "40.5"}`: 41,
		`{"age": 1e300}`:  -1,
	} {
		got, err := DecodeFormData([]byte(doc))
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if got.Age != want {
			t.Errorf("%s: age = %d, want %d", doc, got.Age, want)
		}
	}
	f, _ := DecodeFormData([]byte(`{"age": 1e300}`))
	if !errors.Is(f.Validate(), ErrInvalidAge) {
		t.Errorf("huge age should fail validation")
	}
}

func TestFormDataJSONShape(t *testing.T) {
	f := FormData{
		Profile:  Profile{Name: "Kiran", Age: 51, PAN: "PQRSX6789Z"},
		TaxInput: TaxInput{Income: 1500000, Expenditure: 50000, Deductions: Deductions{Section80C: 150000}},
	}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, part := range []string{`"name":"Kiran"`, `"income":1500000`, `"deductions":{"section80C":150000,"section80D":0,"others":0}`} {
		if !strings.Contains(string(b), part) {
			t.Errorf("marshalled form %s missing %s", b, part)
		}
	}

	var back FormData
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != f {
		t.Fatalf("stored form changed: %+v != %+v", back, f)
	}
}

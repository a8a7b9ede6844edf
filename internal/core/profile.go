package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength = 100
	MaxAge        = 150
)

var (
	ErrNameTooLong = errors.New("name too long (max 100 characters)")
	ErrInvalidAge  = errors.New("invalid age")
	ErrInvalidPAN  = errors.New("invalid PAN")
)

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

type (
	// Profile holds the descriptive fields printed on the report.
	// None of them affect the calculation.
	Profile struct {
		Name string
		Age  int
		PAN  string
	}

	// FormData is the persisted dashboard form.
	FormData struct {
		Profile
		TaxInput
	}
)

// Clean trims the name and upper-cases the PAN.
func (p Profile) Clean() Profile {
	return Profile{
		Name: strings.TrimSpace(p.Name),
		Age:  p.Age,
		PAN:  strings.ToUpper(strings.TrimSpace(p.PAN)),
	}
}

func (p Profile) Validate() error {
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.Age < 0 || p.Age > MaxAge {
		return ErrInvalidAge
	}
	if p.PAN != "" && !panPattern.MatchString(p.PAN) {
		return ErrInvalidPAN
	}
	return nil
}

// Result computes the tax result for the stored input.
func (f FormData) Result() TaxResult {
	return Compute(f.TaxInput)
}

type formJSON struct {
	Name        string         `json:"name"`
	Age         int            `json:"age"`
	PAN         string         `json:"pan"`
	Income      float64        `json:"income"`
	Expenditure float64        `json:"expenditure"`
	Deductions  deductionsJSON `json:"deductions"`
}

type deductionsJSON struct {
	Section80C float64 `json:"section80C"`
	Section80D float64 `json:"section80D"`
	Others     float64 `json:"others"`
}

type looseForm struct {
	Name        any `json:"name"`
	Age         any `json:"age"`
	PAN         any `json:"pan"`
	Income      any `json:"income"`
	Expenditure any `json:"expenditure"`
	Deductions  any `json:"deductions"`
}

// MarshalJSON writes the canonical stored shape with plain numbers.
func (f FormData) MarshalJSON() ([]byte, error) {
	return json.Marshal(formJSON{
		Name:        f.Name,
		Age:         f.Age,
		PAN:         f.PAN,
		Income:      f.Income,
		Expenditure: f.Expenditure,
		Deductions: deductionsJSON{
			Section80C: f.Deductions.Section80C,
			Section80D: f.Deductions.Section80D,
			Others:     f.Deductions.Others,
		},
	})
}

// UnmarshalJSON accepts numbers or numeric strings; see DecodeFormData.
func (f *FormData) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeFormData(data)
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}

// DecodeFormData decodes a loosely typed form document. Every numeric field
// goes through ToNumber, so absent or garbage values become 0, and the age
// is rounded by ToAge. Only malformed JSON, including anything after the
// document, is reported as an error.
func DecodeFormData(data []byte) (FormData, error) {
	var raw looseForm
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return FormData{}, fmt.Errorf("decode form data: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return FormData{}, errors.New("decode form data: unexpected data after JSON document")
	}
	deductions, _ := raw.Deductions.(map[string]any)
	return FormData{
		Profile: Profile{
			Name: stringValue(raw.Name),
			Age:  ToAge(raw.Age),
			PAN:  stringValue(raw.PAN),
		},
		TaxInput: TaxInput{
			Income:      ToNumber(raw.Income, 0),
			Expenditure: ToNumber(raw.Expenditure, 0),
			Deductions: Deductions{
				Section80C: ToNumber(deductions["section80C"], 0),
				Section80D: ToNumber(deductions["section80D"], 0),
				Others:     ToNumber(deductions["others"], 0),
			},
		},
	}, nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

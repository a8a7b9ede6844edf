// Parsing of dashboard form submissions, JSON or form-encoded.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"taxdash/internal/core"
)

// maxBodyBytes bounds every request body the server reads.
const maxBodyBytes = 64 << 10

// Form field names, shared with the dashboard template.
const (
	fieldName        = "name"
	fieldAge         = "age"
	fieldPAN         = "pan"
	fieldIncome      = "income"
	fieldExpenditure = "expenditure"
	fieldSection80C  = "section80C"
	fieldSection80D  = "section80D"
	fieldOthers      = "others"
)

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser reads the body once and parses it as JSON or form data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	formData    url.Values
	isJSON      bool
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if strings.HasPrefix(p.contentType, "application/json") || strings.HasPrefix(trimmed, "{") {
		p.isJSON = true
		return nil
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a sanitized form value; JSON bodies have no flat values.
func (p *RequestBodyParser) Get(key string) string {
	if p.formData == nil {
		return ""
	}
	return sanitizeInput(p.formData.Get(key))
}

// FormData converts the parsed body into a cleaned form. Numeric fields
// that are absent or not numbers become 0.
func (p *RequestBodyParser) FormData() (core.FormData, error) {
	if err := p.Parse(); err != nil {
		return core.FormData{}, fmt.Errorf("parse body: %w", err)
	}

	var f core.FormData
	if p.isJSON {
		decoded, err := core.DecodeFormData(p.body)
		if err != nil {
			return core.FormData{}, err
		}
		f = decoded
	} else {
		f = core.FormData{
			Profile: core.Profile{
				Name: p.Get(fieldName),
				Age:  core.ToAge(p.Get(fieldAge)),
				PAN:  p.Get(fieldPAN),
			},
			TaxInput: core.TaxInput{
				Income:      core.ToNumber(p.Get(fieldIncome), 0),
				Expenditure: core.ToNumber(p.Get(fieldExpenditure), 0),
				Deductions: core.Deductions{
					Section80C: core.ToNumber(p.Get(fieldSection80C), 0),
					Section80D: core.ToNumber(p.Get(fieldSection80D), 0),
					Others:     core.ToNumber(p.Get(fieldOthers), 0),
				},
			},
		}
	}

	f.Profile = f.Profile.Clean()
	f.Name = sanitizeInput(f.Name)
	f.TaxInput = f.TaxInput.Normalize()
	return f, nil
}

// ParseFormData reads r's body into a cleaned form.
func ParseFormData(r *http.Request) (core.FormData, error) {
	return NewRequestBodyParser(r).FormData()
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

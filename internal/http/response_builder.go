package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"taxdash/internal/core"
)

// Client-side events raised by the dashboard endpoints.
const (
	EventCalculated   = "tax:calculated"
	EventFormReset    = "form:reset"
	EventNotification = "show-notification"
)

// NoticeKind selects the styling of a toast on the dashboard.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// how long each kind of toast stays up, in ms
var noticeDuration = map[NoticeKind]int{
	NoticeSuccess: 3000,
	NoticeWarning: 5000,
	NoticeError:   6000,
}

// HTMXResponseBuilder collects HX-Trigger events, headers, a status and a
// body, and writes them in one go.
type HTMXResponseBuilder struct {
	events  map[string]any
	status  int
	headers http.Header
	body    []byte
}

func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		events:  map[string]any{},
		status:  http.StatusOK,
		headers: http.Header{},
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers.Set(name, value)
	return b
}

// Trigger adds a named event to HX-Trigger. A later call with the same
// name replaces the payload.
func (b *HTMXResponseBuilder) Trigger(name string, payload any) *HTMXResponseBuilder {
	b.events[name] = payload
	return b
}

// TriggerCalculated lets other widgets pick up the new figures without
// another request.
func (b *HTMXResponseBuilder) TriggerCalculated(version int64, res core.TaxResult) *HTMXResponseBuilder {
	return b.Trigger(EventCalculated, map[string]any{
		"version":       version,
		"taxableIncome": res.TaxableIncome,
		"tax":           res.Tax,
		"gst":           res.GST,
	})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// Notify shows a toast of the given kind.
func (b *HTMXResponseBuilder) Notify(kind NoticeKind, message string) *HTMXResponseBuilder {
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": noticeDuration[kind],
	})
}

func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers.Set("Content-Type", "text/html; charset=utf-8")
	b.body = []byte(html)
	return b
}

// BodyJSON encodes v; an encoding failure becomes a 500.
func (b *HTMXResponseBuilder) BodyJSON(v any) *HTMXResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.status = http.StatusInternalServerError
		data = []byte(`{"error":"encoding failed"}`)
	}
	b.headers.Set("Content-Type", "application/json")
	b.body = append(data, '\n')
	return b
}

// Attachment sends text as a download named filename.
func (b *HTMXResponseBuilder) Attachment(filename, text string) *HTMXResponseBuilder {
	b.headers.Set("Content-Type", "text/plain; charset=utf-8")
	b.headers.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	b.headers.Set("Content-Length", strconv.Itoa(len(text)))
	b.body = []byte(text)
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.headers {
		h[name] = values
	}
	if len(b.events) > 0 {
		if encoded, err := json.Marshal(b.events); err == nil {
			h.Set("HX-Trigger", string(encoded))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse renders an escaped error partial for htmx targets.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		BodyHTML(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// JSONError is the API counterpart of ErrorResponse.
func JSONError(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		BodyJSON(map[string]string{"error": message})
}

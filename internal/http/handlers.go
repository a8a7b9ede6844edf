package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taxdash/internal/core"
	applog "taxdash/internal/log"
	"taxdash/internal/report"
	"taxdash/internal/store"
)

const readyTimeout = 5 * time.Second

// loadForm returns the stored form for key, or an empty one when none
// was saved. Only backend failures are errors.
func (s *Server) loadForm(ctx context.Context, key string) (core.FormData, error) {
	f, err := s.forms.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return core.FormData{}, nil
	}
	return f, err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		s.log(ctx).ErrorContext(ctx, "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	key := s.sessionKey(w, r)
	f, err := s.loadForm(ctx, key)
	view := newDashboardView(f, 0)
	if err != nil {
		s.events.LogError(ctx, "Failed to load saved form", err, applog.ComponentStore, applog.OpLoad,
			applog.NewFields().WithForm(key, 0))
		view.Notice = "Your saved form could not be loaded."
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		s.events.LogError(ctx, "Index template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// handleCalculate recomputes, saves the form and returns the results partial.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := s.sessionKey(w, r)

	f, err := ParseFormData(r)
	if err != nil {
		s.log(ctx).WarnContext(ctx, "Invalid calculate request", applog.FieldError, err)
		BadRequestError("Invalid request format").Write(w)
		return
	}
	if err := f.Profile.Validate(); err != nil {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}

	version, err := s.forms.Save(ctx, key, f)
	if err != nil {
		s.events.LogError(ctx, "Failed to save form", err, applog.ComponentStore, applog.OpSave,
			applog.NewFields().WithForm(key, 0))
		InternalServerError("Error saving your form").Write(w)
		return
	}
	s.appMetrics.calculations.Add(1)

	view := newDashboardView(f, version)
	res := f.Result()
	s.events.LogCalculation(ctx, key, version, f.Income, res.TaxableIncome, res.Tax, res.GST)
	exportDelayed := !s.publishExport(ctx, key, version)

	body, err := s.render("results", view)
	if err != nil {
		s.events.LogError(ctx, "Results template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("Error rendering results").Write(w)
		return
	}
	resp := NewHTMXResponse().TriggerCalculated(version, res)
	if exportDelayed {
		resp.Notify(NoticeWarning, "Saved. The spreadsheet export will catch up shortly.")
	}
	resp.BodyHTML(body).Write(w)
}

// handleReset deletes the saved form; htmx clients reload the page.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if key, ok := existingSessionKey(r); ok {
		if err := s.forms.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.events.LogError(ctx, "Failed to delete form", err, applog.ComponentStore, applog.OpDelete,
				applog.NewFields().WithForm(key, 0))
			InternalServerError("Error clearing your form").Write(w)
			return
		}
		s.log(ctx).InfoContext(ctx, "Form reset", applog.FieldFormKey, key)
	}

	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerFormReset().
		Notify(NoticeSuccess, "Form cleared").
		Header("HX-Refresh", "true").
		Write(w)
}

// handleReport downloads the plain-text report of the saved form.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var f core.FormData
	if key, ok := existingSessionKey(r); ok {
		var err error
		if f, err = s.loadForm(ctx, key); err != nil {
			s.events.LogError(ctx, "Failed to load form for report", err, applog.ComponentStore, applog.OpLoad,
				applog.NewFields().WithForm(key, 0))
			http.Error(w, "failed to load form", http.StatusInternalServerError)
			return
		}
	}

	NewHTMXResponse().
		Attachment(report.Filename, report.Build(f).Text()).
		Write(w)
}

type resultJSON struct {
	TaxableIncome float64 `json:"taxableIncome"`
	Tax           float64 `json:"tax"`
	GST           float64 `json:"gst"`
}

type calculateResponse struct {
	Input  core.FormData `json:"input"`
	Result resultJSON    `json:"result"`
}

// handleAPICalculate computes without saving anything.
func (s *Server) handleAPICalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFormData(r)
	if err != nil {
		JSONError(http.StatusBadRequest, "invalid JSON body").Write(w)
		return
	}
	if err := f.Profile.Validate(); err != nil {
		JSONError(http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
		return
	}

	res := f.Result()
	s.appMetrics.calculations.Add(1)
	s.log(ctx).DebugContext(ctx, "API calculation",
		applog.FieldIncome, f.Income,
		applog.FieldTaxable, res.TaxableIncome,
		applog.FieldTax, res.Tax,
		applog.FieldGST, res.GST)

	NewHTMXResponse().BodyJSON(calculateResponse{
		Input:  f,
		Result: resultJSON{TaxableIncome: res.TaxableIncome, Tax: res.Tax, GST: res.GST},
	}).Write(w)
}

// handleAPICharts returns the chart series of the saved form.
func (s *Server) handleAPICharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var f core.FormData
	if key, ok := existingSessionKey(r); ok {
		var err error
		if f, err = s.loadForm(ctx, key); err != nil {
			s.events.LogError(ctx, "Failed to load form for charts", err, applog.ComponentStore, applog.OpLoad,
				applog.NewFields().WithForm(key, 0))
			JSONError(http.StatusInternalServerError, "failed to load form").Write(w)
			return
		}
	}
	NewHTMXResponse().BodyJSON(report.Build(f).Charts()).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and, when configured, the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	ready := true
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		ready = false
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.forms == nil:
		checks["store"] = "not_configured"
		ready = false
	case s.pinger == nil:
		checks["store"] = "ok"
	default:
		if err := s.pinger.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			ready = false
		} else {
			checks["store"] = "ok"
		}
	}

	// a lost broker only delays exports, so it never fails readiness
	switch pub := s.publisher.(type) {
	case nil:
		checks["export_events"] = "disabled"
	case interface{ IsConnected() bool }:
		if pub.IsConnected() {
			checks["export_events"] = "connected"
		} else {
			checks["export_events"] = "disconnected"
		}
	default:
		checks["export_events"] = "enabled"
	}
	if s.cacheStats != nil {
		st := s.cacheStats()
		checks["cache"] = map[string]any{"entries": st.Size, "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients(), "status": "ok"}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	NewHTMXResponse().
		Status(code).
		BodyJSON(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	traceMetrics := s.traceMiddleware.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_microseconds", "gauge", "Average request duration", traceMetrics.AverageResponseTime)
	metric("tax_calculations_total", "counter", "Total tax calculations served", s.appMetrics.calculations.Load())
	metric("export_events_published_total", "counter", "Export events published to the broker", s.appMetrics.exportsQueued.Load())
	metric("export_events_failed_total", "counter", "Export events that could not be published", s.appMetrics.exportFailures.Load())
	if s.cacheStats != nil {
		st := s.cacheStats()
		metric("form_cache_hits_total", "counter", "Form cache hits", st.Hits)
		metric("form_cache_misses_total", "counter", "Form cache misses", st.Misses)
		metric("form_cache_evictions_total", "counter", "Form cache evictions", st.Evictions)
		metric("form_cache_entries", "gauge", "Current form cache entries", st.Size)
	}
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// publishExport never fails the request; the worker's pending sweep
// picks up versions whose event was lost. It reports false only when a
// configured publisher rejected the event.
func (s *Server) publishExport(ctx context.Context, key string, version int64) bool {
	if s.publisher == nil {
		return true
	}
	if err := s.publisher.PublishReportExport(ctx, key, version); err != nil {
		s.appMetrics.exportFailures.Add(1)
		s.log(ctx).WarnContext(ctx, "Failed to publish export event",
			applog.FieldFormKey, key,
			applog.FieldVersion, version,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
		return false
	}
	s.appMetrics.exportsQueued.Add(1)
	return true
}

func (s *Server) render(name string, data any) (string, error) {
	if s.templates == nil {
		return "", errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrNameTooLong):
		return "Name is too long (max 100 characters)"
	case errors.Is(err, core.ErrInvalidAge):
		return "Age must be between 0 and 150"
	case errors.Is(err, core.ErrInvalidPAN):
		return "PAN must look like ABCDE1234F"
	default:
		return "Invalid data: " + err.Error()
	}
}

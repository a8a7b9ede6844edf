// Package worker exports stored tax forms to the report spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"taxdash/internal/amqp"
	applog "taxdash/internal/log"
	"taxdash/internal/report"
	"taxdash/internal/sheets"
	"taxdash/internal/store"
)

// DefaultBatchSize caps one ProcessPending pass.
const DefaultBatchSize = 10

// parallel bounds concurrent sheet appends in ProcessPending.
const parallel = 4

type ExportWorker struct {
	forms     store.FormStore
	tracker   store.ExportTracker
	sheets    sheets.ReportWriter
	batchSize int
	logger    *applog.Logger
	now       func() time.Time
}

// NewExportWorker wants an uncached form store: the web process may have
// written a newer version since this process last read it.
func NewExportWorker(forms store.FormStore, tracker store.ExportTracker, writer sheets.ReportWriter, batchSize int, logger *applog.Logger) *ExportWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ExportWorker{
		forms:     forms,
		tracker:   tracker,
		sheets:    writer,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// HandleExportMessage exports the form named by msg. Messages for deleted
// forms or superseded versions are accepted without writing anything.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	current, err := w.tracker.CurrentVersion(ctx, msg.Key)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.InfoContext(ctx, "Form deleted before export, skipping", applog.FieldFormKey, msg.Key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read current version: %w", err)
	}
	if msg.Version < current {
		w.logger.DebugContext(ctx, "Skipping superseded export",
			applog.FieldFormKey, msg.Key,
			applog.FieldVersion, msg.Version,
			"current_version", current)
		return nil
	}
	return w.export(ctx, msg.Key, current)
}

// ProcessPending exports up to one batch of forms whose latest version
// was never exported, covering messages lost while the broker was down.
// It returns how many were exported.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.tracker.PendingExports(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var exported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.export(gctx, p.Key, p.Version); err != nil {
				w.logger.ErrorContext(gctx, "Pending export failed",
					applog.FieldFormKey, p.Key,
					applog.FieldVersion, p.Version,
					applog.FieldError, err)
				return nil
			}
			exported.Add(1)
			return nil
		})
	}
	g.Wait()

	n := int(exported.Load())
	w.logger.InfoContext(ctx, "Processed pending exports", "pending", len(pending), "exported", n)
	return n, ctx.Err()
}

// Run calls ProcessPending immediately and then every interval until ctx ends.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Pending export pass failed", applog.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ExportWorker) export(ctx context.Context, key string, version int64) error {
	f, err := w.forms.Load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load form: %w", err)
	}

	r := report.BuildAt(f, w.now())
	ref, err := w.sheets.AppendReport(ctx, key, r)
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}
	// the row is written; a failed mark only means a duplicate row later
	if err := w.tracker.MarkExported(ctx, key, version); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark form exported",
			applog.FieldFormKey, key,
			applog.FieldVersion, version,
			applog.FieldError, err)
	}

	fields := applog.NewFields().
		WithForm(key, version).
		WithResult(f.Income, r.Result.TaxableIncome, r.Result.Tax, r.Result.GST).
		WithOperation(applog.OpExport)
	fields[applog.FieldSheetsRef] = ref
	w.logger.InfoContext(ctx, "Report exported", fields.ToSlice()...)
	return nil
}

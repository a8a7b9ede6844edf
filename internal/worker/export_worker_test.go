package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"taxdash/internal/amqp"
	"taxdash/internal/core"
	"taxdash/internal/report"
	sheetsmem "taxdash/internal/sheets/memory"
	"taxdash/internal/store/memory"
)

type failingWriter struct {
	mu    sync.Mutex
	calls int
}

func (f *failingWriter) AppendReport(context.Context, string, report.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "", errors.New("quota exceeded")
}

func form(income float64) core.FormData {
	return core.FormData{
		Profile:  core.Profile{Name: "Asha"},
		TaxInput: core.TaxInput{Income: income},
	}
}

func TestHandleExportMessage(t *testing.T) {
	ctx := context.Background()
	forms := memory.New()
	writer := sheetsmem.New()
	w := NewExportWorker(forms, forms, writer, 0, nil)

	v, _ := forms.Save(ctx, "k1", form(600000))
	if err := w.HandleExportMessage(ctx, &amqp.ReportExportMessage{Key: "k1", Version: v}); err != nil {
		t.Fatalf("HandleExportMessage: %v", err)
	}
	rows := writer.Rows()
	if len(rows) != 1 || rows[0][1] != "k1" || rows[0][4] != 600000.0 {
		t.Fatalf("unexpected rows %v", rows)
	}
	if p, _ := forms.PendingExports(ctx, 0); len(p) != 0 {
		t.Fatalf("form should be marked exported, pending %+v", p)
	}
}

func TestHandleExportMessageSkipsStaleVersions(t *testing.T) {
	ctx := context.Background()
	forms := memory.New()
	writer := sheetsmem.New()
	w := NewExportWorker(forms, forms, writer, 0, nil)

	forms.Save(ctx, "k1", form(100))
	forms.Save(ctx, "k1", form(200))

	if err := w.HandleExportMessage(ctx, &amqp.ReportExportMessage{Key: "k1", Version: 1}); err != nil {
		t.Fatalf("stale message should be acknowledged: %v", err)
	}
	if len(writer.Rows()) != 0 {
		t.Fatalf("stale message must not write a row")
	}
	if err := w.HandleExportMessage(ctx, &amqp.ReportExportMessage{Key: "k1", Version: 2}); err != nil {
		t.Fatal(err)
	}
	if rows := writer.Rows(); len(rows) != 1 || rows[0][4] != 200.0 {
		t.Fatalf("expected the latest form to be exported, got %v", rows)
	}
}

func TestHandleExportMessageDeletedForm(t *testing.T) {
	ctx := context.Background()
	forms := memory.New()
	writer := sheetsmem.New()
	w := NewExportWorker(forms, forms, writer, 0, nil)

	if err := w.HandleExportMessage(ctx, &amqp.ReportExportMessage{Key: "gone", Version: 1}); err != nil {
		t.Fatalf("deleted form should be acknowledged: %v", err)
	}
	if len(writer.Rows()) != 0 {
		t.Fatal("nothing should be written for a deleted form")
	}
}

func TestHandleExportMessageWriterFailureRequeues(t *testing.T) {
	ctx := context.Background()
	forms := memory.New()
	w := NewExportWorker(forms, forms, &failingWriter{}, 0, nil)

	forms.Save(ctx, "k1", form(1))
	if err := w.HandleExportMessage(ctx, &amqp.ReportExportMessage{Key: "k1", Version: 1}); err == nil {
		t.Fatal("expected an error so the message is requeued")
	}
	if p, _ := forms.PendingExports(ctx, 0); len(p) != 1 {
		t.Fatalf("form should stay pending, got %+v", p)
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	forms := memory.New()
	writer := sheetsmem.New()
	w := NewExportWorker(forms, forms, writer, 2, nil)

	for _, k := range []string{"a", "b", "c"} {
		forms.Save(ctx, k, form(1000))
	}
	n, err := w.ProcessPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first pass: n=%d err=%v", n, err)
	}
	n, _ = w.ProcessPending(ctx)
	if n != 1 {
		t.Fatalf("second pass exported %d, want 1", n)
	}
	if n, _ = w.ProcessPending(ctx); n != 0 {
		t.Fatalf("nothing should be left, exported %d", n)
	}
	if len(writer.Rows()) != 3 {
		t.Fatalf("rows = %d, want 3", len(writer.Rows()))
	}
}

func TestProcessPendingKeepsFailuresPending(t *testing.T) {
	ctx := context.Background()
	forms := memory.New()
	writer := &failingWriter{}
	w := NewExportWorker(forms, forms, writer, 10, nil)

	forms.Save(ctx, "a", form(1))
	forms.Save(ctx, "b", form(2))
	n, err := w.ProcessPending(ctx)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if writer.calls != 2 {
		t.Fatalf("writer calls = %d, want 2", writer.calls)
	}
	if p, _ := forms.PendingExports(ctx, 0); len(p) != 2 {
		t.Fatalf("failed exports must stay pending: %+v", p)
	}
}

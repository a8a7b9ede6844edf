// Package memory keeps exported report rows in process, for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"taxdash/internal/report"
	"taxdash/internal/sheets"
)

type Writer struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// AppendReport returns a synthetic row reference.
func (w *Writer) AppendReport(ctx context.Context, key string, r report.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, sheets.ReportRow(key, r))
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of the appended rows.
func (w *Writer) Rows() [][]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]any(nil), w.rows...)
}

// Package store defines where submitted tax forms live between requests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxdash/internal/core"
)

// MaxKeyLength bounds form keys so they fit cookie values and redis keys.
const MaxKeyLength = 64

var (
	ErrNotFound   = errors.New("form not found")
	ErrInvalidKey = errors.New("invalid form key")
)

// Ports for form persistence.
type (
	FormStore interface {
		// Load returns ErrNotFound when nothing is stored under key.
		Load(ctx context.Context, key string) (core.FormData, error)
		// Save stores f and returns the new version for key, starting at 1.
		Save(ctx context.Context, key string, f core.FormData) (version int64, err error)
		Delete(ctx context.Context, key string) error
	}

	// ExportTracker records which form versions reached the report sheet.
	ExportTracker interface {
		PendingExports(ctx context.Context, limit int) ([]PendingExport, error)
		MarkExported(ctx context.Context, key string, version int64) error
		// CurrentVersion returns ErrNotFound when the form was deleted.
		CurrentVersion(ctx context.Context, key string) (int64, error)
	}
)

// PendingExport is a stored form whose latest version has not been exported.
type PendingExport struct {
	Key       string
	Version   int64
	UpdatedAt time.Time
}

// ValidateKey accepts 1..MaxKeyLength characters from [A-Za-z0-9_-].
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidKey, r)
		}
	}
	return nil
}

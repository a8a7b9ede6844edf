// Package storage persists tax forms in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"taxdash/internal/core"
	"taxdash/internal/store"
)

// SQLiteRepository implements store.FormStore and store.ExportTracker.
type SQLiteRepository struct {
	db            *sql.DB
	now           func() time.Time
	schemaVersion uint
}

// NewSQLiteRepository opens dbPath, creating its directory, and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, now: time.Now, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Load(ctx context.Context, key string) (core.FormData, error) {
	if err := store.ValidateKey(key); err != nil {
		return core.FormData{}, err
	}
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM forms WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FormData{}, store.ErrNotFound
	}
	if err != nil {
		return core.FormData{}, fmt.Errorf("load form: %w", err)
	}
	f, err := core.DecodeFormData([]byte(payload))
	if err != nil {
		return core.FormData{}, fmt.Errorf("decode stored form %s: %w", key, err)
	}
	return f, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, key string, f core.FormData) (int64, error) {
	if err := store.ValidateKey(key); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return 0, fmt.Errorf("encode form: %w", err)
	}
	var version int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO forms (key, payload, version, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT (key) DO UPDATE SET
			payload = excluded.payload,
			version = forms.version + 1,
			updated_at = excluded.updated_at
		RETURNING version`,
		key, string(payload), r.now().UnixMilli()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save form: %w", err)
	}
	slog.DebugContext(ctx, "Form saved to SQLite", "form_key", key, "version", version)
	return version, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	return nil
}

// PendingExports lists forms whose latest version is not yet exported,
// oldest first. A non-positive limit returns all of them.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]store.PendingExport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, version, updated_at FROM forms
		WHERE exported_version < version
		ORDER BY updated_at, key
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending exports: %w", err)
	}
	defer rows.Close()

	var out []store.PendingExport
	for rows.Next() {
		var (
			p       store.PendingExport
			updated int64
		)
		if err := rows.Scan(&p.Key, &p.Version, &updated); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		p.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkExported records version as exported; it never moves backwards.
func (r *SQLiteRepository) MarkExported(ctx context.Context, key string, version int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE forms SET exported_version = MAX(exported_version, ?), synced_at = ?
		WHERE key = ?`, version, r.now().UnixMilli(), key)
	if err != nil {
		return fmt.Errorf("mark form exported: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark form exported: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.InfoContext(ctx, "Form marked as exported", "form_key", key, "version", version)
	return nil
}

func (r *SQLiteRepository) CurrentVersion(ctx context.Context, key string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM forms WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read form version: %w", err)
	}
	return v, nil
}

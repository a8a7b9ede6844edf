package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"taxdash/internal/core"
	"taxdash/internal/store"
)

// SeedFile is read by NewFromFiles; it maps form keys to forms.
const SeedFile = "seed_form.json"

type entry struct {
	form      core.FormData
	version   int64
	exported  int64
	updatedAt time.Time
}

// Store keeps forms in process memory. It implements store.FormStore and
// store.ExportTracker.
type Store struct {
	mu    sync.Mutex
	forms map[string]*entry
	now   func() time.Time
}

func New() *Store {
	return &Store{forms: map[string]*entry{}, now: time.Now}
}

// NewFromFiles seeds the store from base/seed_form.json when present.
// Seeded forms count as already exported.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(filepath.Join(base, SeedFile))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed map[string]core.FormData
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for key, f := range seed {
		if err := store.ValidateKey(key); err != nil {
			return nil, fmt.Errorf("seed key %q: %w", key, err)
		}
		s.forms[key] = &entry{form: f, version: 1, exported: 1, updatedAt: s.now()}
	}
	return s, nil
}

func (s *Store) Load(_ context.Context, key string) (core.FormData, error) {
	if err := store.ValidateKey(key); err != nil {
		return core.FormData{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.forms[key]
	if !ok {
		return core.FormData{}, store.ErrNotFound
	}
	return e.form, nil
}

func (s *Store) Save(_ context.Context, key string, f core.FormData) (int64, error) {
	if err := store.ValidateKey(key); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.forms[key]
	if !ok {
		e = &entry{}
		s.forms[key] = e
	}
	e.form = f
	e.version++
	e.updatedAt = s.now()
	return e.version, nil
}

// Delete is a no-op for unknown keys.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, key)
	return nil
}

// PendingExports returns the oldest unexported forms first.
func (s *Store) PendingExports(_ context.Context, limit int) ([]store.PendingExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.PendingExport
	for key, e := range s.forms {
		if e.exported < e.version {
			out = append(out, store.PendingExport{Key: key, Version: e.version, UpdatedAt: e.updatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkExported never moves the exported version backwards.
func (s *Store) MarkExported(_ context.Context, key string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.forms[key]
	if !ok {
		return store.ErrNotFound
	}
	if version > e.exported {
		e.exported = version
	}
	return nil
}

func (s *Store) CurrentVersion(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.forms[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	return e.version, nil
}

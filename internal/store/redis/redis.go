// Package redis stores forms in Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"taxdash/internal/core"
	"taxdash/internal/store"
)

const (
	keyPrefix  = "taxdash:form:"
	pendingKey = "taxdash:pending"

	fieldPayload  = "payload"
	fieldVersion  = "version"
	fieldExported = "exported"
	fieldUpdated  = "updated_at"
)

// markExported raises the exported version and drops the key from the
// pending set once it caught up. Returns 0 for a missing form.
var markExported = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local exported = tonumber(redis.call("HGET", KEYS[1], "exported") or "0")
local wanted = tonumber(ARGV[1])
if wanted > exported then
  redis.call("HSET", KEYS[1], "exported", wanted)
  exported = wanted
end
local version = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
if exported >= version then
  redis.call("ZREM", KEYS[2], ARGV[2])
end
return 1
`)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store implements store.FormStore and store.ExportTracker.
type Store struct {
	client *goredis.Client
	now    func() time.Time
}

func New(opts Options) *Store {
	return NewWithClient(goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}))
}

func NewWithClient(client *goredis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func formKey(key string) string { return keyPrefix + key }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, key string) (core.FormData, error) {
	if err := store.ValidateKey(key); err != nil {
		return core.FormData{}, err
	}
	payload, err := s.client.HGet(ctx, formKey(key), fieldPayload).Bytes()
	if errors.Is(err, goredis.Nil) {
		return core.FormData{}, store.ErrNotFound
	}
	if err != nil {
		return core.FormData{}, fmt.Errorf("redis load form: %w", err)
	}
	f, err := core.DecodeFormData(payload)
	if err != nil {
		return core.FormData{}, fmt.Errorf("decode stored form %s: %w", key, err)
	}
	return f, nil
}

func (s *Store) Save(ctx context.Context, key string, f core.FormData) (int64, error) {
	if err := store.ValidateKey(key); err != nil {
		return 0, err
	}
	payload, err := f.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("encode form: %w", err)
	}
	now := s.now().UnixMilli()
	var version *goredis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, formKey(key), fieldPayload, payload, fieldUpdated, now)
		version = p.HIncrBy(ctx, formKey(key), fieldVersion, 1)
		p.ZAdd(ctx, pendingKey, goredis.Z{Score: float64(now), Member: key})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis save form: %w", err)
	}
	return version.Val(), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, formKey(key))
		p.ZRem(ctx, pendingKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete form: %w", err)
	}
	return nil
}

// PendingExports reads the pending set oldest first.
func (s *Store) PendingExports(ctx context.Context, limit int) ([]store.PendingExport, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := s.client.ZRangeWithScores(ctx, pendingKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis pending exports: %w", err)
	}
	out := make([]store.PendingExport, 0, len(members))
	for _, m := range members {
		key, _ := m.Member.(string)
		v, err := s.CurrentVersion(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, store.PendingExport{
			Key:       key,
			Version:   v,
			UpdatedAt: time.UnixMilli(int64(m.Score)).UTC(),
		})
	}
	return out, nil
}

func (s *Store) MarkExported(ctx context.Context, key string, version int64) error {
	n, err := markExported.Run(ctx, s.client, []string{formKey(key), pendingKey}, version, key).Int()
	if err != nil {
		return fmt.Errorf("redis mark exported: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CurrentVersion(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.HGet(ctx, formKey(key), fieldVersion).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis read version: %w", err)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis version %q: %w", raw, err)
	}
	return v, nil
}

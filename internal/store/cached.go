package store

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"taxdash/internal/cache"
	"taxdash/internal/core"
)

// Cached is a read-through FormStore. Concurrent misses for one key share a
// single backend load; writes drop the cached entry.
type Cached struct {
	next  FormStore
	cache cache.Cache[core.FormData]
	group singleflight.Group
	// bumped on every write; a load that raced a write is not cached
	writes atomic.Uint64
}

func NewCached(next FormStore, c cache.Cache[core.FormData]) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Load(ctx context.Context, key string) (core.FormData, error) {
	if f, ok := c.cache.Get(key); ok {
		return f, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		before := c.writes.Load()
		f, err := c.next.Load(ctx, key)
		if err != nil {
			return core.FormData{}, err
		}
		if c.writes.Load() == before {
			c.cache.Set(key, f)
		}
		return f, nil
	})
	if err != nil {
		return core.FormData{}, err
	}
	return v.(core.FormData), nil
}

func (c *Cached) Save(ctx context.Context, key string, f core.FormData) (int64, error) {
	version, err := c.next.Save(ctx, key, f)
	c.writes.Add(1)
	c.group.Forget(key)
	c.cache.Delete(key)
	return version, err
}

func (c *Cached) Delete(ctx context.Context, key string) error {
	err := c.next.Delete(ctx, key)
	c.writes.Add(1)
	c.group.Forget(key)
	c.cache.Delete(key)
	return err
}

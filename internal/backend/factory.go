// Package backend builds the form store selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxdash/internal/amqp"
	"taxdash/internal/cache"
	"taxdash/internal/core"
	applog "taxdash/internal/log"
	"taxdash/internal/storage"
	"taxdash/internal/store"
	"taxdash/internal/store/memory"
	"taxdash/internal/store/redis"
)

const (
	defaultCacheSize = 500
	defaultCacheTTL  = 5 * time.Minute
)

// baseStore is what every concrete backend implements.
type baseStore interface {
	store.FormStore
	store.ExportTracker
}

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	var (
		base    baseStore
		pinger  Pinger
		closers []func() error
	)
	switch config.Type {
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		s, err := memory.NewFromFiles(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
		}
		base = s
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		base, pinger = repo, repo
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	case RedisBackend:
		s := redis.New(redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
		}
		base, pinger = s, s
		closers = append(closers, s.Close)
		f.logger.Info("Initialized Redis backend", "addr", config.RedisAddr, "db", config.RedisDB)
	}

	size, ttl := config.CacheSize, config.CacheTTL
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	lru := cache.NewLRUCache[core.FormData](size, ttl)

	var publisher *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without export events", applog.FieldError, err)
		} else {
			publisher = client
			// close the publisher before the store it reports on
			closers = append([]func() error{client.Close}, closers...)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Store:      store.NewCached(base, lru),
		Base:       base,
		Tracker:    base,
		Publisher:  publisher,
		Pinger:     pinger,
		CacheStats: lru.Stats,
		Cache:      lru,
		Cleanup: func() error {
			var errs []error
			for _, c := range closers {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}

package backend

import (
	"context"
	"time"

	"taxdash/internal/amqp"
	"taxdash/internal/cache"
	"taxdash/internal/store"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult is everything the binaries need from a storage backend.
type BackendResult struct {
	// Store is the cached store handlers should use.
	Store store.FormStore
	// Base is the uncached store. The export worker reads through it.
	Base    store.FormStore
	Tracker store.ExportTracker
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher *amqp.Client
	// Pinger is nil for the memory backend.
	Pinger     Pinger
	CacheStats func() cache.Stats
	// Cache is registered with a cache.Manager for expiry sweeps.
	Cache   cache.Cleaner
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// Memory
	DataDirectory string

	// SQLite
	SQLiteDBPath string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Read cache in front of every backend
	CacheTTL  time.Duration
	CacheSize int

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}

// GetBackendTypes returns all valid backend types.
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, RedisBackend}
}

// GetBackendTypeStrings returns all valid backend type strings.
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

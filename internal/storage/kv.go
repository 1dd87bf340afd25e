package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// KVEngine defines the interface for embedded key-value storage.
//
// Implementations must be safe for concurrent use and durable across
// restarts (unless opened in memory).
type KVEngine interface {
	// Get retrieves a value by key.
	// Returns ErrKeyNotFound if key doesn't exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Scan iterates over keys with a given prefix in key order.
	// Callback returns false to stop iteration.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// GC triggers garbage collection (for LSM-based engines like Badger).
	// Returns bytes reclaimed.
	GC(ctx context.Context) (uint64, error)

	// Stats returns storage statistics (size, keys count, etc.).
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the KV engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// Engine is the engine name.
	Engine string

	// TotalKeys is the number of keys.
	TotalKeys uint64

	// TotalSize is the total disk usage in bytes.
	TotalSize uint64

	// LSMSize is the LSM tree size (Badger only).
	LSMSize uint64

	// ValueLogSize is the value log size (Badger only).
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64
}

// Engine names.
const (
	EngineBadger = "badger"
	EngineBolt   = "bolt"
)

// KVConfig configures an embedded KV engine.
type KVConfig struct {
	// Engine specifies the KV engine type ("badger", "bolt").
	// Default: "badger"
	Engine string

	// Dir is the storage directory.
	Dir string

	// InMemory keeps all data in memory. Dir is ignored. Badger only.
	InMemory bool

	// Badger-specific configuration
	Badger BadgerConfig

	// Bolt-specific configuration
	Bolt BoltConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	// Zero disables the background GC loop.
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5 (run GC when 50% of data is stale)
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 16MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64

	// SyncWrites enables sync writes (fsync after each write).
	// Default: true
	SyncWrites bool
}

// BoltConfig contains Bolt-specific parameters.
type BoltConfig struct {
	// FileName is the database file inside Dir.
	// Default: "catalog.db"
	FileName string

	// OpenTimeout bounds the wait for the file lock held by another process.
	// Default: 1s
	OpenTimeout time.Duration
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		Bolt:   DefaultBoltConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
// The catalog is small, so the defaults are far below Badger's own.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        16 << 20, // 16MB
		ValueLogFileSize: 64 << 20, // 64MB
		SyncWrites:       true,
	}
}

// DefaultBoltConfig returns the default Bolt configuration.
func DefaultBoltConfig() BoltConfig {
	return BoltConfig{
		FileName:    "catalog.db",
		OpenTimeout: time.Second,
	}
}

// Open opens the engine named by cfg.Engine.
func Open(cfg KVConfig, logger *slog.Logger) (KVEngine, error) {
	switch cfg.Engine {
	case EngineBadger, "":
		return NewBadgerEngine(cfg, logger)
	case EngineBolt:
		return NewBoltEngine(cfg, logger)
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}

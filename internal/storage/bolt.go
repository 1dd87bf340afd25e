package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
)

// boltBucket holds every catalog key.
var boltBucket = []byte("docmirror")

// BoltEngine implements KVEngine using a single Bolt file.
type BoltEngine struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
}

// NewBoltEngine opens (or creates) <Dir>/<Bolt.FileName>.
func NewBoltEngine(cfg KVConfig, logger *slog.Logger) (*BoltEngine, error) {
	if cfg.InMemory {
		return nil, fmt.Errorf("bolt: in-memory mode is not supported")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("bolt: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	boltCfg := cfg.Bolt
	if boltCfg.FileName == "" {
		boltCfg.FileName = DefaultBoltConfig().FileName
	}

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("bolt: create dir: %w", err)
	}

	path := filepath.Join(cfg.Dir, boltCfg.FileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltCfg.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: create bucket: %w", err)
	}

	logger.Debug("bolt engine started", "path", path)

	return &BoltEngine{db: db, path: path, logger: logger}, nil
}

// Get retrieves a value by key.
func (e *BoltEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte

	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		// Bolt values are only valid inside the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, e.mapErr(err)
	}

	return value, nil
}

// Set stores a key-value pair.
func (e *BoltEngine) Set(ctx context.Context, key, value []byte) error {
	return e.mapErr(e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	}))
}

// Scan iterates over keys with a given prefix.
func (e *BoltEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return e.mapErr(e.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := append([]byte(nil), k...)
			value := append([]byte(nil), v...)
			if !fn(key, value) {
				break
			}
		}
		return nil
	}))
}

// GC is a no-op: Bolt reuses freed pages in place.
func (e *BoltEngine) GC(ctx context.Context) (uint64, error) {
	return 0, nil
}

// Stats returns storage statistics.
func (e *BoltEngine) Stats(ctx context.Context) (*KVStats, error) {
	stats := &KVStats{Engine: EngineBolt}
	err := e.db.View(func(tx *bolt.Tx) error {
		stats.TotalKeys = uint64(tx.Bucket(boltBucket).Stats().KeyN)
		stats.TotalSize = uint64(tx.Size())
		return nil
	})
	if err != nil {
		return nil, e.mapErr(err)
	}
	return stats, nil
}

// Close closes the database file.
func (e *BoltEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	e.logger.Debug("bolt engine closed", "path", e.path)
	return nil
}

func (e *BoltEngine) mapErr(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// engineCase opens one engine flavour for the shared tests.
type engineCase struct {
	name string
	open func(t *testing.T) KVEngine
}

func engineCases() []engineCase {
	return []engineCase{
		{
			name: "badger-memory",
			open: func(t *testing.T) KVEngine {
				cfg := DefaultKVConfig("")
				cfg.InMemory = true
				e, err := NewBadgerEngine(cfg, slog.Default())
				if err != nil {
					t.Fatal(err)
				}
				return e
			},
		},
		{
			name: "badger-disk",
			open: func(t *testing.T) KVEngine {
				cfg := DefaultKVConfig(t.TempDir())
				cfg.Badger.GCInterval = 0
				e, err := NewBadgerEngine(cfg, slog.Default())
				if err != nil {
					t.Fatal(err)
				}
				return e
			},
		},
		{
			name: "bolt",
			open: func(t *testing.T) KVEngine {
				cfg := DefaultKVConfig(t.TempDir())
				cfg.Engine = EngineBolt
				e, err := Open(cfg, slog.Default())
				if err != nil {
					t.Fatal(err)
				}
				return e
			},
		},
	}
}

func TestKVEngine_BasicOperations(t *testing.T) {
	for _, ec := range engineCases() {
		t.Run(ec.name, func(t *testing.T) {
			engine := ec.open(t)
			defer engine.Close()

			ctx := context.Background()

			t.Run("Set and Get", func(t *testing.T) {
				if err := engine.Set(ctx, []byte("k"), []byte("v1")); err != nil {
					t.Fatal(err)
				}
				got, err := engine.Get(ctx, []byte("k"))
				if err != nil {
					t.Fatal(err)
				}
				if string(got) != "v1" {
					t.Errorf("expected v1, got %s", got)
				}
			})

			t.Run("Overwrite", func(t *testing.T) {
				if err := engine.Set(ctx, []byte("k"), []byte("v2")); err != nil {
					t.Fatal(err)
				}
				got, err := engine.Get(ctx, []byte("k"))
				if err != nil {
					t.Fatal(err)
				}
				if string(got) != "v2" {
					t.Errorf("expected v2, got %s", got)
				}
			})

			t.Run("Get non-existent key", func(t *testing.T) {
				_, err := engine.Get(ctx, []byte("missing"))
				if !errors.Is(err, ErrKeyNotFound) {
					t.Errorf("expected ErrKeyNotFound, got %v", err)
				}
			})

			t.Run("Stats", func(t *testing.T) {
				stats, err := engine.Stats(ctx)
				if err != nil {
					t.Fatal(err)
				}
				if stats.TotalKeys != 1 {
					t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
				}
				if _, err := engine.GC(ctx); err != nil {
					t.Errorf("GC() error = %v", err)
				}
			})
		})
	}
}

func TestKVEngine_Scan(t *testing.T) {
	for _, ec := range engineCases() {
		t.Run(ec.name, func(t *testing.T) {
			engine := ec.open(t)
			defer engine.Close()

			ctx := context.Background()
			for _, k := range []string{"doc/b", "doc/a", "doc/c", "folder/x", "docs"} {
				if err := engine.Set(ctx, []byte(k), []byte("v-"+k)); err != nil {
					t.Fatal(err)
				}
			}

			var keys []string
			err := engine.Scan(ctx, []byte("doc/"), func(key, value []byte) bool {
				keys = append(keys, string(key))
				if string(value) != "v-"+string(key) {
					t.Errorf("value for %s = %s", key, value)
				}
				return true
			})
			if err != nil {
				t.Fatal(err)
			}
			if fmt.Sprint(keys) != "[doc/a doc/b doc/c]" {
				t.Errorf("scan keys = %v", keys)
			}

			count := 0
			err = engine.Scan(ctx, []byte("doc/"), func(_, _ []byte) bool {
				count++
				return false
			})
			if err != nil {
				t.Fatal(err)
			}
			if count != 1 {
				t.Errorf("early stop visited %d keys, want 1", count)
			}
		})
	}
}

func TestKVEngine_Persistence(t *testing.T) {
	for _, engineName := range []string{EngineBadger, EngineBolt} {
		t.Run(engineName, func(t *testing.T) {
			dir := t.TempDir()
			cfg := DefaultKVConfig(dir)
			cfg.Engine = engineName
			cfg.Badger.GCInterval = 0

			ctx := context.Background()

			e1, err := Open(cfg, slog.Default())
			if err != nil {
				t.Fatal(err)
			}
			if err := e1.Set(ctx, []byte("persist"), []byte("yes")); err != nil {
				t.Fatal(err)
			}
			if err := e1.Close(); err != nil {
				t.Fatal(err)
			}

			e2, err := Open(cfg, slog.Default())
			if err != nil {
				t.Fatal(err)
			}
			defer e2.Close()

			got, err := e2.Get(ctx, []byte("persist"))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "yes" {
				t.Errorf("expected yes, got %s", got)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(KVConfig{Engine: "pebble", Dir: t.TempDir()}, nil); err == nil {
		t.Error("Open(pebble) should fail")
	}
	if _, err := Open(KVConfig{Engine: EngineBadger}, nil); err == nil {
		t.Error("Open(badger) without dir should fail")
	}
	if _, err := Open(KVConfig{Engine: EngineBolt, InMemory: true}, nil); err == nil {
		t.Error("Open(bolt) in memory should fail")
	}
}

func TestBadgerEngine_ClosedEngine(t *testing.T) {
	cfg := DefaultKVConfig("")
	cfg.InMemory = true
	engine, err := NewBadgerEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := engine.Get(context.Background(), []byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after close error = %v, want ErrClosed", err)
	}
}

func TestBadgerEngine_RegisterMetrics(t *testing.T) {
	cfg := DefaultKVConfig("")
	cfg.InMemory = true
	engine, err := NewBadgerEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	reg := prometheus.NewRegistry()
	engine.RegisterMetrics(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 3 {
		t.Errorf("gathered %d families, want 3", len(families))
	}
}

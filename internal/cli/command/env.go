package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yndnr/docmirror/internal/cli/output"
	"github.com/yndnr/docmirror/internal/config"
	"github.com/yndnr/docmirror/internal/core/service"
	"github.com/yndnr/docmirror/internal/infra/tlsroots"
	"github.com/yndnr/docmirror/internal/remote"
	"github.com/yndnr/docmirror/internal/storage"
	"github.com/yndnr/docmirror/internal/telemetry/logger"
	"github.com/yndnr/docmirror/internal/telemetry/metric"
)

// File names under the configured directories.
const (
	LogFileName     = "docmirror.log"
	MetricsFileName = "docmirror.prom"
)

// Env carries what commands share: configuration, logging, metrics and
// the lazily opened catalog.
type Env struct {
	Store   *config.Store
	Log     logger.Logger
	Metrics *metric.Registry
	Format  output.Format

	errOut io.Writer

	catalog *storage.Catalog
	closers []io.Closer
}

// Services bundles the domain services a command works with.
type Services struct {
	Catalog *storage.Catalog
	Docs    *service.DocumentCatalog
	Engine  *service.SyncEngine
}

func (e *Env) setupLogger() error {
	cfg := e.Store.Config()

	w := e.errOut
	if w == nil {
		w = os.Stderr
	}
	if cfg.Log.ToFile {
		path := filepath.Join(e.Store.LogDir(), LogFileName)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		e.closers = append(e.closers, f)
		w = io.MultiWriter(w, f)
	}

	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: w,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(l)
	e.Log = l
	e.Metrics = metric.NewRegistry()

	l.Debug("configuration loaded",
		"layout", e.Store.Layout(),
		"config_file", e.Store.ConfigFile(),
		"layers", e.Store.Layers(),
	)
	return nil
}

// Catalog opens the catalog database once.
func (e *Env) Catalog() (*storage.Catalog, error) {
	if e.catalog != nil {
		return e.catalog, nil
	}

	cfg := e.Store.Config()
	kvCfg := storage.DefaultKVConfig(e.Store.DataDir())
	kvCfg.Engine = cfg.Storage.Engine

	kv, err := storage.Open(kvCfg, logger.Slog(e.Log))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if be, ok := kv.(*storage.BadgerEngine); ok {
		be.RegisterMetrics(e.Metrics.Registerer())
	}

	cat := storage.NewCatalog(kv)
	e.Metrics.Registerer().MustRegister(metric.NewCatalogCollector(func() (metric.CatalogStats, error) {
		st, err := cat.Status(context.Background())
		if err != nil {
			return metric.CatalogStats{}, err
		}
		return metric.CatalogStats{Documents: st.Documents, Folders: st.Folders, SizeBytes: st.SizeBytes}, nil
	}))

	e.catalog = cat
	e.closers = append(e.closers, cat)
	return cat, nil
}

// Remote creates the remote store client.
func (e *Env) Remote() (*remote.Client, error) {
	rc := e.Store.Config().Remote

	cfg := remote.DefaultConfig()
	cfg.BaseURL = rc.BaseURL
	cfg.Token = rc.APIToken
	cfg.Timeout = rc.Timeout
	cfg.RetryMax = rc.RetryMax
	cfg.RateLimit = rc.RateLimit
	cfg.PageSize = rc.PageSize
	cfg.Logger = e.Log.With("component", "remote")

	roots, err := tlsroots.Load(rc.CAFile)
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = roots

	return remote.NewClient(cfg)
}

// Services wires the catalog, the remote client and the sync engine.
func (e *Env) Services() (*Services, error) {
	cat, err := e.Catalog()
	if err != nil {
		return nil, err
	}
	client, err := e.Remote()
	if err != nil {
		return nil, err
	}
	format, err := remote.ParseExportFormat(e.Store.Config().Remote.ExportFormat)
	if err != nil {
		return nil, err
	}

	docs := service.NewDocumentCatalog(cat, service.NewFolderCatalog(cat))
	engine := service.NewSyncEngine(docs, client, e.Store.CacheDir(),
		service.WithExportFormat(format),
		service.WithMetrics(e.Metrics),
		service.WithLogger(e.Log.With("component", "sync")),
	)
	return &Services{Catalog: cat, Docs: docs, Engine: engine}, nil
}

// WriteMetrics writes the metrics textfile when enabled.
func (e *Env) WriteMetrics() error {
	if !e.Store.Config().Metrics.Textfile {
		return nil
	}
	path := filepath.Join(e.Store.VarDir(), MetricsFileName)
	if err := e.Metrics.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	e.Log.Debug("metrics written", "path", path)
	return nil
}

// Close releases everything the Env opened, newest first.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	e.catalog = nil
	return errors.Join(errs...)
}

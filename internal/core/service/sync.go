package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/yndnr/docmirror/internal/core/domain"
	"github.com/yndnr/docmirror/internal/remote"
	"github.com/yndnr/docmirror/internal/telemetry/logger"
	"github.com/yndnr/docmirror/internal/telemetry/metric"
)

// Outcome is the per-document result of a sync pass.
type Outcome string

const (
	OutcomeCreated   Outcome = metric.OutcomeCreated
	OutcomeUpdated   Outcome = metric.OutcomeUpdated
	OutcomeUnchanged Outcome = metric.OutcomeUnchanged
	OutcomeFailed    Outcome = metric.OutcomeFailed
)

// DocumentResult describes what a pass did with one listed document.
type DocumentResult struct {
	RemoteID string  `json:"remote_id" yaml:"remote_id"`
	Title    string  `json:"title" yaml:"title"`
	Version  int64   `json:"version" yaml:"version"`
	Outcome  Outcome `json:"outcome" yaml:"outcome"`
}

// Failure records a document that could not be synced.
type Failure struct {
	RemoteID string `json:"remote_id" yaml:"remote_id"`
	Err      error  `json:"-" yaml:"-"`
}

// Report summarizes a sync pass.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Results holds one entry per listed document, in listing order.
	Results []DocumentResult

	Failed []Failure
}

// Count returns how many results have outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// OK reports whether every listed document was synced.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// SyncEngine reconciles the catalog and the local cache with the remote
// store.
type SyncEngine struct {
	docs     *DocumentCatalog
	remote   remote.Store
	fs       afero.Fs
	cacheDir string
	format   remote.ExportFormat
	metrics  *metric.Registry
	log      logger.Logger
	now      func() time.Time
}

// SyncOption configures a SyncEngine.
type SyncOption func(*SyncEngine)

// WithFs sets the filesystem the cache is written to.
func WithFs(fs afero.Fs) SyncOption {
	return func(e *SyncEngine) { e.fs = fs }
}

// WithExportFormat sets the format documents are downloaded in.
func WithExportFormat(f remote.ExportFormat) SyncOption {
	return func(e *SyncEngine) { e.format = f }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) SyncOption {
	return func(e *SyncEngine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) SyncOption {
	return func(e *SyncEngine) { e.log = l }
}

// WithClock sets the time source used for record timestamps.
func WithClock(now func() time.Time) SyncOption {
	return func(e *SyncEngine) { e.now = now }
}

// NewSyncEngine creates a SyncEngine that caches content under cacheDir.
func NewSyncEngine(docs *DocumentCatalog, store remote.Store, cacheDir string, opts ...SyncOption) *SyncEngine {
	e := &SyncEngine{
		docs:     docs,
		remote:   store,
		fs:       afero.NewOsFs(),
		cacheDir: cacheDir,
		format:   remote.FormatMarkdown,
		log:      logger.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CacheDir returns the directory content is cached in.
func (e *SyncEngine) CacheDir() string {
	return e.cacheDir
}

// CacheExt returns the cache file extension, including the dot.
func (e *SyncEngine) CacheExt() string {
	return "." + e.format.Ext()
}

// CachePath returns the cache file path for a document id.
func (e *SyncEngine) CachePath(remoteID string) (string, error) {
	if remoteID == "" || remoteID == "." || remoteID == ".." ||
		strings.ContainsAny(remoteID, `/\`) {
		return "", domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("remote id %q", remoteID))
	}
	return filepath.Join(e.cacheDir, remoteID+e.CacheExt()), nil
}

// Sync runs one full pass over the remote listing.
//
// A listing failure aborts the pass. Any other failure is confined to its
// document and recorded in the report.
func (e *SyncEngine) Sync(ctx context.Context) (*Report, error) {
	runID, err := domain.NewRunID()
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	ctx = logger.WithRunID(logger.WithLogger(ctx, e.log), runID)
	log := logger.L(ctx)

	report := &Report{RunID: runID, StartedAt: e.now()}
	start := time.Now()

	ids, err := e.remote.ListDocumentIDs(ctx)
	if err != nil {
		e.metrics.SyncCompleted(false, time.Since(start), e.now())
		log.Error("list documents failed", "error", err)
		return nil, domain.ErrListing.WithCause(err)
	}
	log.Info("sync started", "documents", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = e.now()
			e.metrics.SyncCompleted(false, time.Since(start), report.FinishedAt)
			return report, err
		}

		res, err := e.syncOne(ctx, id)
		if err != nil {
			res.Outcome = OutcomeFailed
			report.Failed = append(report.Failed, Failure{RemoteID: id, Err: err})
			log.Warn("document sync failed", "remote_id", id, "error", err)
		} else if res.Outcome == OutcomeUnchanged {
			log.Debug("document unchanged", "remote_id", id)
		} else {
			log.Info("document synced", "remote_id", id, "outcome", string(res.Outcome), "version", res.Version)
		}
		report.Results = append(report.Results, res)
		e.metrics.DocumentProcessed(string(res.Outcome))
	}

	report.FinishedAt = e.now()
	e.metrics.SyncCompleted(report.OK(), time.Since(start), report.FinishedAt)
	log.Info("sync finished",
		"created", report.Count(OutcomeCreated),
		"updated", report.Count(OutcomeUpdated),
		"unchanged", report.Count(OutcomeUnchanged),
		"failed", len(report.Failed),
	)
	return report, nil
}

func (e *SyncEngine) syncOne(ctx context.Context, id string) (DocumentResult, error) {
	res := DocumentResult{RemoteID: id}

	doc, err := e.docs.FindByRemoteID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		title, version, err := e.Download(ctx, id)
		if err != nil {
			return res, err
		}
		res.Title, res.Version = title, version

		doc, err = e.docs.Create(ctx, id, title, version, e.now())
		if err != nil {
			return res, err
		}
		if err := e.UpdateFolderInfo(ctx, doc); err != nil {
			return res, err
		}
		res.Outcome = OutcomeCreated
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Title, res.Version = doc.Title, doc.Version

	cached, err := e.isCached(id)
	if err != nil {
		return res, err
	}
	if cached {
		res.Outcome = OutcomeUnchanged
		return res, nil
	}

	// Content is restored without touching the record.
	if _, _, err := e.Download(ctx, id); err != nil {
		return res, err
	}
	res.Outcome = OutcomeUpdated
	return res, nil
}

// GetChanges downloads doc again, applies the reported title and version,
// and refreshes its folder. Any failure is returned.
func (e *SyncEngine) GetChanges(ctx context.Context, doc *domain.Document) (bool, error) {
	title, version, err := e.Download(ctx, doc.RemoteID)
	if err != nil {
		return false, err
	}
	changed, err := e.docs.ApplyUpdate(ctx, doc, title, version, e.now())
	if err != nil {
		return false, err
	}
	if err := e.UpdateFolderInfo(ctx, doc); err != nil {
		return changed, err
	}
	return changed, nil
}

// UpdateFolderInfo attaches doc to the first folder the remote store
// reports for it. A document without folders is left as is.
func (e *SyncEngine) UpdateFolderInfo(ctx context.Context, doc *domain.Document) error {
	info, err := e.remote.GetFolderInfo(ctx, doc.RemoteID)
	if err != nil {
		return domain.ErrSync.WithDetails("folder info for " + doc.RemoteID).WithCause(err)
	}
	if info == nil || len(info.Folders) == 0 {
		return nil
	}

	first := info.Folders[0]
	folder, created, err := e.docs.Folders().GetOrCreate(ctx, first.ID, first.Name)
	if err != nil {
		return err
	}
	if created {
		logger.L(ctx).Debug("folder created", "folder_id", folder.ID, "name", folder.Name)
	}
	if doc.FolderID == folder.ID {
		return nil
	}
	return e.docs.AttachFolder(ctx, doc, folder)
}

// Download fetches a document and writes its content to the cache,
// replacing any previous copy atomically. It returns the title and
// version the remote store reported.
func (e *SyncEngine) Download(ctx context.Context, remoteID string) (string, int64, error) {
	path, err := e.CachePath(remoteID)
	if err != nil {
		return "", 0, err
	}

	start := time.Now()
	exp, err := e.remote.Download(ctx, remoteID, e.format)
	if err != nil {
		return "", 0, domain.ErrSync.WithDetails("download " + remoteID).WithCause(err)
	}
	if err := e.writeFile(path, exp.Content); err != nil {
		return "", 0, domain.ErrStorage.WithDetails("write " + path).WithCause(err)
	}
	e.metrics.DownloadCompleted(len(exp.Content), time.Since(start))
	return exp.Title, exp.Version, nil
}

// Refetch restores the cached content of a known document. It reports
// false without contacting the remote store when the document is unknown
// or its cache file is present.
func (e *SyncEngine) Refetch(ctx context.Context, remoteID string) (bool, error) {
	if _, err := e.docs.FindByRemoteID(ctx, remoteID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	cached, err := e.isCached(remoteID)
	if err != nil || cached {
		return false, err
	}
	if _, _, err := e.Download(ctx, remoteID); err != nil {
		return false, err
	}
	return true, nil
}

func (e *SyncEngine) isCached(remoteID string) (bool, error) {
	path, err := e.CachePath(remoteID)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(e.fs, path)
	if err != nil {
		return false, domain.ErrStorage.WithCause(err)
	}
	return ok, nil
}

func (e *SyncEngine) writeFile(path string, content []byte) error {
	if err := e.fs.MkdirAll(e.cacheDir, 0o750); err != nil {
		return err
	}
	tmp, err := afero.TempFile(e.fs, e.cacheDir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		e.fs.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		e.fs.Remove(name)
		return err
	}
	if err := e.fs.Rename(name, path); err != nil {
		e.fs.Remove(name)
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/docmirror/internal/core/domain"
)

// DocumentCatalog owns document records.
type DocumentCatalog struct {
	repo    DocumentRepository
	folders *FolderCatalog
}

// NewDocumentCatalog creates a new DocumentCatalog.
func NewDocumentCatalog(repo DocumentRepository, folders *FolderCatalog) *DocumentCatalog {
	return &DocumentCatalog{repo: repo, folders: folders}
}

// Folders returns the folder catalog documents are attached to.
func (c *DocumentCatalog) Folders() *FolderCatalog {
	return c.folders
}

// FindByRemoteID returns the document with remoteID, or domain.ErrNotFound.
func (c *DocumentCatalog) FindByRemoteID(ctx context.Context, remoteID string) (*domain.Document, error) {
	doc, err := c.repo.GetDocument(ctx, remoteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	return doc, nil
}

// Create persists a newly observed document.
func (c *DocumentCatalog) Create(ctx context.Context, remoteID, title string, version int64, ts time.Time) (*domain.Document, error) {
	doc, err := domain.NewDocument(remoteID, title, version, ts)
	if err != nil {
		return nil, err
	}
	if err := c.repo.SaveDocument(ctx, doc); err != nil {
		return nil, storageErr(err)
	}
	return doc, nil
}

// ApplyUpdate applies a remote report of title and version to doc.
//
// The version only moves forward; an older or equal version is ignored.
// A changed title is always taken. When anything changes, LastUpdated is
// set to now and the record is persisted once. doc is left untouched if
// the write fails.
func (c *DocumentCatalog) ApplyUpdate(ctx context.Context, doc *domain.Document, title string, version int64, now time.Time) (bool, error) {
	next := doc.Clone()
	if !next.ApplyRemote(title, version, now) {
		return false, nil
	}
	if err := c.repo.SaveDocument(ctx, next); err != nil {
		return false, storageErr(err)
	}
	*doc = *next
	return true, nil
}

// AttachFolder sets the document's folder reference and persists it.
func (c *DocumentCatalog) AttachFolder(ctx context.Context, doc *domain.Document, folder *domain.Folder) error {
	next := doc.Clone()
	next.AttachTo(folder)
	if err := c.repo.SaveDocument(ctx, next); err != nil {
		return storageErr(err)
	}
	*doc = *next
	return nil
}

// FolderOf resolves the document's folder reference. An empty or dangling
// reference yields nil.
func (c *DocumentCatalog) FolderOf(ctx context.Context, doc *domain.Document) (*domain.Folder, error) {
	if doc.FolderID == "" || c.folders == nil {
		return nil, nil
	}
	f, err := c.folders.Get(ctx, doc.FolderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return f, err
}

// List returns every document ordered by remote id.
func (c *DocumentCatalog) List(ctx context.Context) ([]*domain.Document, error) {
	docs, err := c.repo.ListDocuments(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return docs, nil
}

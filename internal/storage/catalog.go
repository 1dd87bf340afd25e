package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/docmirror/internal/core/domain"
)

// Key prefixes.
const (
	documentPrefix = "doc/"
	folderPrefix   = "folder/"
)

// Catalog stores documents and folders as JSON records in a KVEngine.
//
// Catalog implements service.DocumentRepository and service.FolderRepository.
type Catalog struct {
	kv KVEngine
}

// NewCatalog creates a Catalog over kv.
func NewCatalog(kv KVEngine) *Catalog {
	return &Catalog{kv: kv}
}

func documentKey(remoteID string) []byte { return []byte(documentPrefix + remoteID) }
func folderKey(id string) []byte         { return []byte(folderPrefix + id) }

// GetDocument returns the document with remoteID, or domain.ErrNotFound.
func (c *Catalog) GetDocument(ctx context.Context, remoteID string) (*domain.Document, error) {
	data, err := c.kv.Get(ctx, documentKey(remoteID))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrNotFound.WithDetails("document " + remoteID)
		}
		return nil, domain.ErrStorage.WithCause(err)
	}
	return decodeDocument(data)
}

// SaveDocument creates or replaces a document record.
func (c *Catalog) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	rec := doc.Clone()
	rec.BeforeEncode()
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.ErrStorage.WithCause(fmt.Errorf("encode document %s: %w", doc.RemoteID, err))
	}

	if err := c.kv.Set(ctx, documentKey(doc.RemoteID), data); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// ListDocuments returns every document ordered by remote id.
func (c *Catalog) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	var (
		docs    []*domain.Document
		scanErr error
	)

	err := c.kv.Scan(ctx, []byte(documentPrefix), func(key, value []byte) bool {
		doc, err := decodeDocument(value)
		if err != nil {
			scanErr = fmt.Errorf("key %s: %w", key, err)
			return false
		}
		docs = append(docs, doc)
		return true
	})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	if scanErr != nil {
		return nil, scanErr
	}

	return docs, nil
}

// GetFolder returns the folder with id, or domain.ErrNotFound.
func (c *Catalog) GetFolder(ctx context.Context, id string) (*domain.Folder, error) {
	data, err := c.kv.Get(ctx, folderKey(id))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrNotFound.WithDetails("folder " + id)
		}
		return nil, domain.ErrStorage.WithCause(err)
	}

	var f domain.Folder
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrStorage.WithCause(fmt.Errorf("decode folder %s: %w", id, err))
	}
	return &f, nil
}

// CreateFolder stores a folder record.
func (c *Catalog) CreateFolder(ctx context.Context, f *domain.Folder) error {
	if err := f.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(f)
	if err != nil {
		return domain.ErrStorage.WithCause(fmt.Errorf("encode folder %s: %w", f.ID, err))
	}

	if err := c.kv.Set(ctx, folderKey(f.ID), data); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// ListFolders returns every folder ordered by id.
func (c *Catalog) ListFolders(ctx context.Context) ([]*domain.Folder, error) {
	var (
		folders []*domain.Folder
		scanErr error
	)

	err := c.kv.Scan(ctx, []byte(folderPrefix), func(key, value []byte) bool {
		var f domain.Folder
		if err := json.Unmarshal(value, &f); err != nil {
			scanErr = domain.ErrStorage.WithCause(fmt.Errorf("decode %s: %w", key, err))
			return false
		}
		folders = append(folders, &f)
		return true
	})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	if scanErr != nil {
		return nil, scanErr
	}

	return folders, nil
}

// Counts returns the number of documents and folders.
func (c *Catalog) Counts(ctx context.Context) (documents, folders int, err error) {
	count := func(prefix string) (int, error) {
		n := 0
		err := c.kv.Scan(ctx, []byte(prefix), func(_, _ []byte) bool {
			n++
			return true
		})
		return n, err
	}

	if documents, err = count(documentPrefix); err != nil {
		return 0, 0, domain.ErrStorage.WithCause(err)
	}
	if folders, err = count(folderPrefix); err != nil {
		return 0, 0, domain.ErrStorage.WithCause(err)
	}
	return documents, folders, nil
}

// Status summarizes the catalog for metrics.
type Status struct {
	Engine    string
	Documents int
	Folders   int
	SizeBytes uint64
}

// Status returns record counts and the engine's disk usage.
func (c *Catalog) Status(ctx context.Context) (*Status, error) {
	docs, folders, err := c.Counts(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := c.kv.Stats(ctx)
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	return &Status{
		Engine:    stats.Engine,
		Documents: docs,
		Folders:   folders,
		SizeBytes: stats.TotalSize,
	}, nil
}

// Close closes the underlying engine.
func (c *Catalog) Close() error {
	return c.kv.Close()
}

func decodeDocument(data []byte) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.ErrStorage.WithCause(fmt.Errorf("decode document: %w", err))
	}
	doc.AfterDecode()
	return &doc, nil
}

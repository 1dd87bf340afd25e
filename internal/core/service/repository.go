package service

import (
	"context"
	"errors"

	"github.com/yndnr/docmirror/internal/core/domain"
)

// FolderRepository defines the storage interface for folders.
type FolderRepository interface {
	// GetFolder returns domain.ErrNotFound if id is unknown.
	GetFolder(ctx context.Context, id string) (*domain.Folder, error)

	// CreateFolder stores a new folder.
	CreateFolder(ctx context.Context, f *domain.Folder) error

	// ListFolders returns every folder ordered by id.
	ListFolders(ctx context.Context) ([]*domain.Folder, error)
}

// DocumentRepository defines the storage interface for documents.
type DocumentRepository interface {
	// GetDocument returns domain.ErrNotFound if remoteID is unknown.
	GetDocument(ctx context.Context, remoteID string) (*domain.Document, error)

	// SaveDocument creates or replaces a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// ListDocuments returns every document ordered by remote id.
	ListDocuments(ctx context.Context) ([]*domain.Document, error)
}

// storageErr makes sure a repository failure surfaces as ErrStorage
// without wrapping domain errors twice.
func storageErr(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorage.WithCause(err)
}

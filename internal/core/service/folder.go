package service

import (
	"context"
	"errors"

	"github.com/yndnr/docmirror/internal/core/domain"
)

// FolderCatalog owns folder records.
type FolderCatalog struct {
	repo FolderRepository
}

// NewFolderCatalog creates a new FolderCatalog.
func NewFolderCatalog(repo FolderRepository) *FolderCatalog {
	return &FolderCatalog{repo: repo}
}

// Get returns the folder with id, or domain.ErrNotFound.
func (c *FolderCatalog) Get(ctx context.Context, id string) (*domain.Folder, error) {
	f, err := c.repo.GetFolder(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	return f, nil
}

// GetOrCreate returns the folder with id, creating it with name if it is
// unknown. An existing folder keeps its stored name.
func (c *FolderCatalog) GetOrCreate(ctx context.Context, id, name string) (*domain.Folder, bool, error) {
	existing, err := c.Get(ctx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	f, err := domain.NewFolder(id, name)
	if err != nil {
		return nil, false, err
	}
	if err := c.repo.CreateFolder(ctx, f); err != nil {
		return nil, false, storageErr(err)
	}
	return f, true, nil
}

// List returns every folder ordered by id.
func (c *FolderCatalog) List(ctx context.Context) ([]*domain.Folder, error) {
	folders, err := c.repo.ListFolders(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return folders, nil
}

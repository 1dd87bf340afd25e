// Package service provides the docmirror domain services.
//
// FolderCatalog and DocumentCatalog own the local records and enforce the
// monotonic version rule. SyncEngine reconciles the catalog and the local
// cache against the remote store.
package service

package remote

import (
	"context"
	"fmt"
)

// ExportFormat is the content format requested on download.
type ExportFormat string

// Supported export formats.
const (
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
)

// ParseExportFormat validates s.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case FormatMarkdown, FormatHTML:
		return ExportFormat(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Ext returns the cache file extension for the format.
func (f ExportFormat) Ext() string {
	if f == FormatHTML {
		return "html"
	}
	return "md"
}

// Export is a downloaded document.
type Export struct {
	Title   string
	Version int64
	Content []byte
}

// Folder is a remote folder reference.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderInfo lists the folders a document belongs to, outermost first.
type FolderInfo struct {
	Folders []Folder
}

// Store is the remote document store.
type Store interface {
	// ListDocumentIDs returns every document id visible to the caller.
	ListDocumentIDs(ctx context.Context) ([]string, error)

	// Download fetches a document's content and current metadata.
	Download(ctx context.Context, id string, format ExportFormat) (*Export, error)

	// GetFolderInfo returns the folders of a document, or nil if it is not
	// in any folder.
	GetFolderInfo(ctx context.Context, id string) (*FolderInfo, error)
}

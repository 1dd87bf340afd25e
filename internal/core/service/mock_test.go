package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yndnr/docmirror/internal/core/domain"
	"github.com/yndnr/docmirror/internal/remote"
)

var errBoom = errors.New("boom")

// mockDocumentRepo is an in-memory DocumentRepository.
type mockDocumentRepo struct {
	docs    map[string]*domain.Document
	saves   int
	saveErr error
	getErr  error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[string]*domain.Document)}
}

func (m *mockDocumentRepo) GetDocument(ctx context.Context, remoteID string) (*domain.Document, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[remoteID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *mockDocumentRepo) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.docs[doc.RemoteID] = doc.Clone()
	return nil
}

func (m *mockDocumentRepo) ListDocuments(ctx context.Context) ([]*domain.Document, error) {
	result := make([]*domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		result = append(result, d.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RemoteID < result[j].RemoteID })
	return result, nil
}

// mockFolderRepo is an in-memory FolderRepository.
type mockFolderRepo struct {
	folders   map[string]*domain.Folder
	creates   int
	getErr    error
	createErr error
}

func newMockFolderRepo() *mockFolderRepo {
	return &mockFolderRepo{folders: make(map[string]*domain.Folder)}
}

func (m *mockFolderRepo) GetFolder(ctx context.Context, id string) (*domain.Folder, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	f, ok := m.folders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (m *mockFolderRepo) CreateFolder(ctx context.Context, f *domain.Folder) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	c := *f
	m.folders[f.ID] = &c
	return nil
}

func (m *mockFolderRepo) ListFolders(ctx context.Context) ([]*domain.Folder, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]*domain.Folder, 0, len(m.folders))
	for _, f := range m.folders {
		c := *f
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockRemote is a scripted remote.Store that records calls.
type mockRemote struct {
	mu sync.Mutex

	ids     []string
	listErr error

	exports     map[string]*remote.Export
	downloadErr map[string]error
	folders     map[string]*remote.FolderInfo
	folderErr   error

	downloads   []string
	folderCalls []string
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		exports:     make(map[string]*remote.Export),
		downloadErr: make(map[string]error),
		folders:     make(map[string]*remote.FolderInfo),
	}
}

func (m *mockRemote) add(id, title string, version int64, content string) {
	m.ids = append(m.ids, id)
	m.exports[id] = &remote.Export{Title: title, Version: version, Content: []byte(content)}
}

func (m *mockRemote) ListDocumentIDs(ctx context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.ids...), nil
}

func (m *mockRemote) Download(ctx context.Context, id string, format remote.ExportFormat) (*remote.Export, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, id)
	if err := m.downloadErr[id]; err != nil {
		return nil, err
	}
	exp, ok := m.exports[id]
	if !ok {
		return nil, errors.New("no such document")
	}
	return exp, nil
}

func (m *mockRemote) GetFolderInfo(ctx context.Context, id string) (*remote.FolderInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folderCalls = append(m.folderCalls, id)
	if m.folderErr != nil {
		return nil, m.folderErr
	}
	return m.folders[id], nil
}

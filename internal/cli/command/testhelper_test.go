package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeDoc is a document served by fakeRemote.
type fakeDoc struct {
	Title    string
	Revision int64
	Content  string
	Folders  []map[string]string
	Fail     bool
}

// fakeRemote serves the document API from memory.
type fakeRemote struct {
	*httptest.Server

	mu        sync.Mutex
	order     []string
	docs      map[string]*fakeDoc
	listFails bool
	downloads int
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	f := &fakeRemote{docs: make(map[string]*fakeDoc)}

	mux := http.NewServeMux()
	mux.HandleFunc("/2/paper/docs/list", f.handleList)
	mux.HandleFunc("/2/paper/docs/download", f.handleDownload)
	mux.HandleFunc("/2/paper/docs/get_folder_info", f.handleFolderInfo)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeRemote) add(id string, doc *fakeDoc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		f.order = append(f.order, id)
	}
	f.docs[id] = doc
}

func (f *fakeRemote) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

func (f *fakeRemote) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listFails {
		http.Error(w, `{"error_summary": "internal/"}`, http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"doc_ids":  f.order,
		"cursor":   map[string]string{"value": "end"},
		"has_more": false,
	})
}

func (f *fakeRemote) handleDownload(w http.ResponseWriter, r *http.Request) {
	var arg struct {
		DocID string `json:"doc_id"`
	}
	json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	doc, ok := f.docs[arg.DocID]
	if !ok || doc.Fail {
		http.Error(w, `{"error_summary": "doc_not_found/"}`, http.StatusConflict)
		return
	}
	meta, _ := json.Marshal(map[string]any{"title": doc.Title, "revision": doc.Revision})
	w.Header().Set("Dropbox-API-Result", string(meta))
	w.Write([]byte(doc.Content))
}

func (f *fakeRemote) handleFolderInfo(w http.ResponseWriter, r *http.Request) {
	var arg struct {
		DocID string `json:"doc_id"`
	}
	json.NewDecoder(r.Body).Decode(&arg)

	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[arg.DocID]
	if !ok || len(doc.Folders) == 0 {
		jsonResponse(w, http.StatusOK, map[string]any{})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"folders": doc.Folders})
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// testEnv is a temporary docmirror installation.
type testEnv struct {
	dir    string
	varDir string
	config string
}

func newTestEnv(t *testing.T, remoteURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		varDir: filepath.Join(dir, "var"),
		config: filepath.Join(dir, "docmirror.yaml"),
	}

	content := fmt.Sprintf(`main:
  layout: local
paths:
  local:
    var_dir: %s
log:
  level: error
storage:
  engine: bolt
remote:
  base_url: %s
  api_token: test-token
  retry_max: 0
  rate_limit: 0
metrics:
  textfile: true
`, env.varDir, remoteURL)
	if err := os.WriteFile(env.config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *testEnv) cacheFile(id string) string {
	return filepath.Join(e.varDir, "cache", id+".md")
}

// run executes the CLI with the test config and returns stdout, stderr
// and the exit code.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.config}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	code := RunApp(context.Background(), app, append([]string{"docmirror"}, args...))
	return stdout.String(), stderr.String(), code
}

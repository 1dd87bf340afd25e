package remote

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/yndnr/docmirror/internal/infra/tlsroots"
	"github.com/yndnr/docmirror/internal/telemetry/logger"
)

// API paths.
const (
	pathList          = "/2/paper/docs/list"
	pathListContinue  = "/2/paper/docs/list/continue"
	pathDownload      = "/2/paper/docs/download"
	pathGetFolderInfo = "/2/paper/docs/get_folder_info"
)

// Header names used by content endpoints.
const (
	HeaderAPIArg    = "Dropbox-API-Arg"
	HeaderAPIResult = "Dropbox-API-Result"
)

// ErrCursorStalled is returned when a listing page asks for more results
// but its cursor is empty or was already followed.
var ErrCursorStalled = errors.New("remote: list cursor did not advance")

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// RetryMax is the number of retries after the first attempt.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// RateLimit is requests per second. Zero means unlimited.
	RateLimit float64

	// PageSize is the list page size.
	PageSize int

	// RootCAs verifies the server. Nil means the system roots.
	RootCAs *x509.CertPool

	Logger logger.Logger
}

// DefaultConfig returns a client configuration with sane defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.dropboxapi.com",
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    10,
		PageSize:     100,
	}
}

// APIError is a non-2xx response from the remote store.
type APIError struct {
	StatusCode int
	Path       string
	Summary    string
}

func (e *APIError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("remote %s: %d %s", e.Path, e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("remote %s: status %d", e.Path, e.StatusCode)
}

// Client implements Store over HTTP.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	log      logger.Logger
}

var _ Store = (*Client)(nil)

// NewClient creates a new Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: base url is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.HTTPClient.Timeout = cfg.Timeout
	if cfg.RootCAs != nil {
		if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
			t.TLSClientConfig = tlsroots.ClientConfig(cfg.RootCAs)
		}
	}
	rc.Logger = logger.NewHCLogger(log, "remote")
	// Hand the last response back instead of a generic "giving up" error,
	// so status and error summary reach the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limit := rate.Inf
	burst := 0
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultConfig().PageSize
	}

	return &Client{
		baseURL:  baseURL,
		token:    cfg.Token,
		pageSize: pageSize,
		http:     rc,
		limiter:  rate.NewLimiter(limit, burst),
		log:      log,
	}, nil
}

type listResponse struct {
	DocIDs []string `json:"doc_ids"`
	Cursor struct {
		Value string `json:"value"`
	} `json:"cursor"`
	HasMore bool `json:"has_more"`
}

// ListDocumentIDs returns every document id, following cursors.
func (c *Client) ListDocumentIDs(ctx context.Context) ([]string, error) {
	var page listResponse
	if err := c.rpc(ctx, pathList, map[string]any{"limit": c.pageSize}, &page); err != nil {
		return nil, err
	}

	ids := append([]string(nil), page.DocIDs...)
	seen := make(map[string]bool)
	for page.HasMore {
		cursor := page.Cursor.Value
		if cursor == "" || seen[cursor] {
			return nil, fmt.Errorf("%w: cursor %q after %d ids", ErrCursorStalled, cursor, len(ids))
		}
		seen[cursor] = true
		page = listResponse{}
		if err := c.rpc(ctx, pathListContinue, map[string]string{"cursor": cursor}, &page); err != nil {
			return nil, err
		}
		ids = append(ids, page.DocIDs...)
	}

	c.log.Debug("listed documents", "count", len(ids))
	return ids, nil
}

type downloadResult struct {
	Title    string `json:"title"`
	Revision int64  `json:"revision"`
	MimeType string `json:"mime_type"`
}

// Download fetches a document in format.
func (c *Client) Download(ctx context.Context, id string, format ExportFormat) (*Export, error) {
	arg, err := json.Marshal(map[string]string{"doc_id": id, "export_format": string(format)})
	if err != nil {
		return nil, fmt.Errorf("encode download arg: %w", err)
	}

	resp, err := c.do(ctx, pathDownload, nil, func(req *retryablehttp.Request) {
		req.Header.Set(HeaderAPIArg, string(arg))
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var meta downloadResult
	raw := resp.Header.Get(HeaderAPIResult)
	if raw == "" {
		return nil, fmt.Errorf("remote %s: missing %s header", pathDownload, HeaderAPIResult)
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("remote %s: decode %s: %w", pathDownload, HeaderAPIResult, err)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote %s: read body: %w", pathDownload, err)
	}

	return &Export{Title: meta.Title, Version: meta.Revision, Content: content}, nil
}

type folderInfoResponse struct {
	Folders []Folder `json:"folders"`
}

// GetFolderInfo returns the folders of document id, or nil if it has none.
func (c *Client) GetFolderInfo(ctx context.Context, id string) (*FolderInfo, error) {
	var out folderInfoResponse
	if err := c.rpc(ctx, pathGetFolderInfo, map[string]string{"doc_id": id}, &out); err != nil {
		return nil, err
	}
	if len(out.Folders) == 0 {
		return nil, nil
	}
	return &FolderInfo{Folders: out.Folders}, nil
}

// rpc posts a JSON body and decodes a JSON response.
func (c *Client) rpc(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	resp, err := c.do(ctx, path, body, func(req *retryablehttp.Request) {
		req.Header.Set("Content-Type", "application/json")
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// do waits for the limiter, sends one logical request (with transport
// retries) and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, path string, body []byte, prepare func(*retryablehttp.Request)) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Summary: errorSummary(resp.Body)}
	}
	return resp, nil
}

// errorSummary extracts error_summary from an API error body, falling back
// to the first line of plain text.
func errorSummary(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		ErrorSummary string `json:"error_summary"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.ErrorSummary != "" {
		return payload.ErrorSummary
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	return line
}

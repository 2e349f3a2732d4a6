package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/intraceai/archive-viewer/internal/metrics"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	userAgent      = "archive-viewer/1.0"
)

// maxContentSize caps a single backend response body.
var maxContentSize int64 = 64 << 20

var ErrContentTooLarge = errors.New("response body exceeds size limit")

// Client talks to the archive backend. It holds no state besides its
// transport, so one instance may be shared by every view.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListSnapshots fetches every snapshot the backend holds for domain.
func (c *Client) ListSnapshots(ctx context.Context, domain string) (*models.ArchiveResponse, error) {
	endpoint := fmt.Sprintf("%s/archive/%s", c.baseURL, url.PathEscape(domain))

	body, err := c.do(ctx, http.MethodGet, endpoint, "list")
	if err != nil {
		return nil, err
	}

	resp, err := decodeArchive(body, domain)
	if err != nil {
		return nil, &shared.NetworkError{Op: http.MethodGet, URL: endpoint, Err: fmt.Errorf("decode archive response: %w", err)}
	}
	return resp, nil
}

// GetSnapshotContent returns the captured HTML body. The bytes are
// untrusted third-party content and are returned as-is.
func (c *Client) GetSnapshotContent(ctx context.Context, domain, timestamp string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/archive/%s/%s", c.baseURL, url.PathEscape(domain), url.PathEscape(timestamp))
	return c.do(ctx, http.MethodGet, endpoint, "content")
}

// DeleteSnapshots removes the given snapshots one by one and stops at
// the first failure.
func (c *Client) DeleteSnapshots(ctx context.Context, domain string, snapshots []models.Snapshot) error {
	for _, s := range snapshots {
		endpoint := fmt.Sprintf("%s/archive/%s/%s", c.baseURL, url.PathEscape(domain), url.PathEscape(s.Timestamp))
		if _, err := c.do(ctx, http.MethodDelete, endpoint, "delete"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/health", "health")
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint, op string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, &shared.NetworkError{Op: method, URL: endpoint, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBackend(op, "error", time.Since(start))
		c.logger.Error("backend request failed", "method", method, "url", endpoint, "error", err)
		return nil, &shared.NetworkError{Op: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		metrics.ObserveBackend(op, fmt.Sprint(resp.StatusCode), time.Since(start))
		c.logger.Warn("backend returned error status", "method", method, "url", endpoint, "status", resp.StatusCode)
		return nil, &shared.NetworkError{Op: method, URL: endpoint, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize+1))
	if err != nil {
		metrics.ObserveBackend(op, "error", time.Since(start))
		return nil, &shared.NetworkError{Op: method, URL: endpoint, Err: err}
	}
	if int64(len(data)) > maxContentSize {
		metrics.ObserveBackend(op, "error", time.Since(start))
		c.logger.Warn("backend response too large", "method", method, "url", endpoint, "limit", maxContentSize)
		return nil, &shared.NetworkError{Op: method, URL: endpoint, Err: ErrContentTooLarge}
	}

	metrics.ObserveBackend(op, fmt.Sprint(resp.StatusCode), time.Since(start))
	c.logger.Debug("backend request", "method", method, "url", endpoint, "status", resp.StatusCode, "bytes", len(data))
	return data, nil
}

// decodeArchive accepts the documented envelope and the bare array some
// backend builds return.
func decodeArchive(body []byte, domain string) (*models.ArchiveResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var snapshots []models.Snapshot
		if err := json.Unmarshal(trimmed, &snapshots); err != nil {
			return nil, err
		}
		return &models.ArchiveResponse{Domain: domain, Snapshots: snapshots, Total: len(snapshots)}, nil
	}

	var resp models.ArchiveResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	if resp.Domain == "" {
		resp.Domain = domain
	}
	if resp.Snapshots == nil {
		resp.Snapshots = []models.Snapshot{}
	}
	return &resp, nil
}

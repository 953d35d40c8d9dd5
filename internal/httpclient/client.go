// Package httpclient provides the HTTP client used for catalog listings and
// schema existence probes.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB). Full
	// repository tree listings for large catalogs run to tens of MB.
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests.
	UserAgent = "kubeschema/1.0"

	// githubAPIVersion pins the GitHub REST API version on api.github.com
	// requests.
	githubAPIVersion = "2022-11-28"
)

// Client is an interface for HTTP operations.
type Client interface {
	// Get performs an HTTP GET request and returns the response body.
	Get(ctx context.Context, url string) ([]byte, error)

	// Probe checks whether the URL resolves to an existing document. A nil
	// error means the target exists; an *HTTPError means a clean
	// non-success status; any other error is a transport failure.
	Probe(ctx context.Context, url string) error
}

// DefaultClient is the default HTTP client implementation.
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a new default HTTP client with the specified
// timeout. If timeout is 0, uses DefaultTimeout.
func NewDefaultClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs an HTTP GET request.
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
			resp.ContentLength, MaxResponseSize)
	}

	// +1 so an over-limit body is detectable.
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// Probe issues a HEAD request against the URL, falling back to GET when the
// server does not support HEAD. The body is discarded either way.
func (c *DefaultClient) Probe(ctx context.Context, url string) error {
	status, err := c.probeOnce(ctx, http.MethodHead, url)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		status, err = c.probeOnce(ctx, http.MethodGet, url)
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return NewHTTPError(status, url, http.StatusText(status))
	}
	return nil
}

func (c *DefaultClient) probeOnce(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	return resp.StatusCode, nil
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if strings.EqualFold(req.URL.Host, "api.github.com") {
		req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
		req.Header.Set("Accept", "application/vnd.github+json")
	}
}

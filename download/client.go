// Package download fetches genome reference files over HTTP.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is the default number of retry attempts for failed requests.
	DefaultMaxRetries = 3

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "cotton-toolkit/1.0"

	// partSuffix marks files still being written.
	partSuffix = ".part"
)

// ErrNoProxy is returned by TestProxy when no proxy address is given.
var ErrNoProxy = errors.New("no proxy configured")

// StatusError reports a non-retryable HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Client downloads files with retries.
type Client struct {
	HTTPClient *http.Client
	MaxRetries int
	UserAgent  string

	// RetryDelay is the first backoff delay; it doubles on every attempt.
	RetryDelay time.Duration

	logger *zap.Logger
	proxy  func(*http.Request) (*url.URL, error)
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Proxy settings are then
// left to that client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = httpClient
	}
}

// WithProxy routes requests through the given proxies, chosen by the
// request scheme. An empty address falls back to the other one.
func WithProxy(httpProxy, httpsProxy string) ClientOption {
	return func(c *Client) {
		c.proxy = ProxyFunc(httpProxy, httpsProxy)
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) {
		c.MaxRetries = retries
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.UserAgent = ua
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a download client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		MaxRetries: DefaultMaxRetries,
		UserAgent:  DefaultUserAgent,
		RetryDelay: time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTPClient == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if c.proxy != nil {
			tr.Proxy = c.proxy
		}
		tr.ResponseHeaderTimeout = time.Minute
		c.HTTPClient = &http.Client{Transport: tr}
	}
	return c
}

// ProxyFunc returns a proxy selector for http.Transport. Requests use
// httpsProxy for https URLs and httpProxy otherwise, each falling back
// to the other when empty. Invalid addresses are reported per request.
func ProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" {
		httpProxy = httpsProxy
	}
	if httpsProxy == "" {
		httpsProxy = httpProxy
	}
	return func(req *http.Request) (*url.URL, error) {
		addr := httpProxy
		if req.URL.Scheme == "https" {
			addr = httpsProxy
		}
		if addr == "" {
			return nil, nil
		}
		u, err := url.Parse(addr)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy address %q", addr)
		}
		return u, nil
	}
}

// ProgressFunc receives the bytes written so far and the expected total,
// which is -1 when the server does not send a length.
type ProgressFunc func(written, total int64)

// Fetch downloads rawURL to dest. Data is streamed into dest.part which
// is renamed to dest once complete, so dest never holds a partial file.
// Server errors and transport failures are retried with exponential
// backoff; client errors fail immediately.
func (c *Client) Fetch(ctx context.Context, rawURL, dest string, progress ProgressFunc) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("creating download directory: %w", err)
	}
	part := dest + partSuffix

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.RetryDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Debug("retrying download",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				os.Remove(part)
				return 0, ctx.Err()
			case <-time.After(delay):
			}
		}

		n, retry, err := c.fetchOnce(ctx, rawURL, part, progress)
		if err == nil {
			if err := os.Rename(part, dest); err != nil {
				os.Remove(part)
				return 0, fmt.Errorf("finalizing %s: %w", dest, err)
			}
			return n, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	os.Remove(part)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return 0, lastErr
}

// fetchOnce performs one download attempt into part. It reports whether
// a failure is worth retrying.
func (c *Client) fetchOnce(ctx context.Context, rawURL, part string, progress ProgressFunc) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, true, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, true, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.StatusCode >= 400 {
		return 0, false, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	fh, err := os.Create(part)
	if err != nil {
		return 0, false, fmt.Errorf("creating %s: %w", part, err)
	}

	var w io.Writer = fh
	if progress != nil {
		w = &progressWriter{w: fh, total: resp.ContentLength, fn: progress}
		progress(0, resp.ContentLength)
	}

	n, err := io.Copy(w, resp.Body)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, true, fmt.Errorf("writing %s: %w", part, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return 0, true, fmt.Errorf("short download of %s: got %d of %d bytes", rawURL, n, resp.ContentLength)
	}
	return n, false, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}

// TestProxy checks that target is reachable through the given proxies
// and returns the round trip time.
func TestProxy(ctx context.Context, httpProxy, httpsProxy, target string) (time.Duration, error) {
	if strings.TrimSpace(httpProxy) == "" && strings.TrimSpace(httpsProxy) == "" {
		return 0, ErrNoProxy
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = ProxyFunc(httpProxy, httpsProxy)
	client := &http.Client{Transport: tr, Timeout: 15 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("connecting through proxy: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	elapsed := time.Since(start)

	if resp.StatusCode >= 400 {
		return elapsed, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return elapsed, nil
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/ppiankov/placecrawl/internal/cache"
	"github.com/ppiankov/placecrawl/internal/model"
	"github.com/ppiankov/placecrawl/internal/worker"
)

// fetchSleepFunc waits between retries (injectable for tests)
var fetchSleepFunc = worker.Pause

// Local failures that never reach the upstream and are not retried
var (
	errBuildRequest = errors.New("create request")
	errThrottle     = errors.New("rate limit")
)

// Client performs throttled, cached, retried JSON GETs for the adapters
type Client struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	retry      model.RetryConfig
	userAgent  string
	maxBytes   int64
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLimiter throttles requests per host
func WithLimiter(l *worker.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithCache serves repeated requests from c; ttl 0 uses the cache default
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithRetry sets the retry policy
func WithRetry(cfg model.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxBodyBytes caps the response body size
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) { c.maxBytes = n }
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient wraps httpClient; a nil httpClient uses http.DefaultClient
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		retry:      model.DefaultConfig().Retry,
		maxBytes:   2_000_000,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one upstream GET
type Request struct {
	Source   string
	Op       string
	Query    string
	Page     int
	URL      string
	Header   http.Header
	Timeout  time.Duration // per attempt; 0 means none beyond ctx
	CacheKey string        // empty disables caching
}

// GetJSON fetches req and decodes the body into out. Failures are returned
// as *RequestError once retries are exhausted or the error is permanent.
func (c *Client) GetJSON(ctx context.Context, req Request, out any) error {
	if req.CacheKey != "" && c.cache != nil {
		if body, ok := c.cache.Get(req.CacheKey); ok {
			if err := json.Unmarshal(body, out); err == nil {
				return nil
			}
			_ = c.cache.Delete(req.CacheKey)
		}
	}

	body, status, err := c.fetchWithRetry(ctx, req)
	if err != nil {
		return &RequestError{Source: req.Source, Op: req.Op, Query: req.Query, Page: req.Page, StatusCode: status, Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{Source: req.Source, Op: req.Op, Query: req.Query, Page: req.Page, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}

	if req.CacheKey != "" && c.cache != nil {
		if err := c.cache.Set(req.CacheKey, body, c.cacheTTL); err != nil {
			c.logger.Debug("cache write failed", "source", req.Source, "error", err)
		}
	}
	return nil
}

// fetchWithRetry retries transient failures with exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, req Request) ([]byte, int, error) {
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		body   []byte
		status int
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, err = c.fetch(ctx, req)
		if err == nil {
			return body, status, nil
		}
		if ctx.Err() != nil {
			return nil, status, ctx.Err()
		}
		if !isRetryable(status, err) || attempt == maxAttempts {
			return nil, status, err
		}

		delay := c.retryDelay(attempt)
		c.logger.Debug("retrying upstream request",
			"source", req.Source, "op", req.Op, "query", req.Query, "page", req.Page,
			"attempt", attempt, "delay", delay, "error", err)
		if err := fetchSleepFunc(ctx, delay); err != nil {
			return nil, status, err
		}
	}
	return nil, status, err
}

func (c *Client) fetch(ctx context.Context, req Request) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, req.URL); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", errThrottle, err)
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", errBuildRequest, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) retryDelay(attempt int) time.Duration {
	base := c.retry.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	delay := base << (attempt - 1)
	if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}
	return delay
}

// isRetryable reports whether a failed attempt may succeed if repeated:
// 429, 5xx, attempt timeouts and transport-level network failures
func isRetryable(status int, err error) bool {
	if err == nil {
		return false
	}
	if status == http.StatusTooManyRequests || (status >= 500 && status < 600) {
		return true
	}
	if status != 0 {
		return false
	}
	switch {
	case errors.Is(err, errBuildRequest), errors.Is(err, errThrottle):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

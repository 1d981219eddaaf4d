// Package safehttp issues outbound HTTP requests across the trust boundary:
// verified TLS, a mandatory deadline, and a closed Outcome instead of raw
// errors or exceptions reaching the caller.
package safehttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/omlabs/trustbound/internal/rate"
	"github.com/omlabs/trustbound/internal/redact"
	log "github.com/omlabs/trustbound/pkg/logger"
	"github.com/omlabs/trustbound/pkg/metrics"
)

const defaultMaxBodyBytes = 4 * 1024 * 1024

// Request describes one outbound call. Body, when non-nil, is marshaled to
// JSON unless it is already a []byte or json.RawMessage.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   any
}

// Client executes requests with TLS certificate verification always on and a
// hard per-call deadline. There is deliberately no option to disable
// verification or to wait forever, and no internal retry: retry policy
// belongs to the caller.
type Client struct {
	logger  *zap.Logger
	http    *http.Client
	rateMgr *rate.Manager
	maxBody int64
}

// Option tunes optional client behavior.
type Option func(*Client)

// WithRateLimiter applies a per-host token-bucket limiter to outbound calls.
func WithRateLimiter(mgr *rate.Manager) Option {
	return func(c *Client) { c.rateMgr = mgr }
}

// WithMaxBodyBytes caps how much of a response body is read (default 4 MiB).
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// New constructs a Client. timeout is mandatory; a non-positive value is a
// construction error, never a wait-forever default.
func New(logger *zap.Logger, timeout time.Duration, opts ...Option) (*Client, error) {
	if timeout <= 0 {
		return nil, errors.New("safehttp: timeout is required")
	}
	if logger == nil {
		logger = log.L()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	c := &Client{
		logger: logger,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do executes the request and maps every possible failure into exactly one
// Outcome variant. Request bodies are never logged; headers are masked
// before they reach a log line.
func (c *Client) Do(ctx context.Context, req Request) Outcome {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return c.finish(req, hostOf(req.URL), time.Now(), TransportError(redact.MaskDSN(err.Error())))
	}

	host := httpReq.URL.Host
	start := time.Now()

	if c.rateMgr != nil {
		if err := c.rateMgr.Wait(ctx, host); err != nil {
			return c.finish(req, host, start, classifyTransport(err))
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.finish(req, host, start, classifyTransport(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return c.finish(req, host, start, classifyTransport(err))
	}

	// Error-range statuses are terminal before any body parsing.
	if resp.StatusCode >= 400 {
		return c.finish(req, host, start, HTTPError(resp.StatusCode))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		// An explicit empty/null payload is not a success; absence must not
		// flow downstream looking like data.
		return c.finish(req, host, start, DecodeError("empty or null payload"))
	}
	if !json.Valid(trimmed) {
		return c.finish(req, host, start, DecodeError("response body is not valid JSON"))
	}

	return c.finish(req, host, start, Success(json.RawMessage(trimmed)))
}

// build assembles the underlying request with JSON defaults.
func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	var reader io.Reader
	if req.Body != nil {
		switch b := req.Body.(type) {
		case []byte:
			reader = bytes.NewReader(b)
		case json.RawMessage:
			reader = bytes.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(data)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, err
	}
	for name, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(name, v)
		}
	}
	if reader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	return httpReq, nil
}

// finish records metrics and logs the outcome, then returns it unchanged.
func (c *Client) finish(req Request, host string, start time.Time, out Outcome) Outcome {
	metrics.IncHTTPOutcome(host, string(out.Kind()))
	metrics.ObserveHTTPDuration(host, start)

	if out.OK() {
		c.logger.Debug("safehttp.success",
			zap.String("method", req.Method),
			zap.String("host", host),
			zap.Duration("elapsed", time.Since(start)))
		return out
	}

	c.logger.Warn("safehttp.failure",
		zap.String("method", req.Method),
		zap.String("host", host),
		zap.String("kind", string(out.Kind())),
		zap.Int("status", out.Status()),
		zap.String("detail", out.Message()),
		zap.Any("headers", redact.MaskHeaders(req.Header)),
		zap.Duration("elapsed", time.Since(start)))
	return out
}

// classifyTransport maps a transport-level error into Timeout or TransportError.
func classifyTransport(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout()
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return Timeout()
	}
	return TransportError(redact.MaskDSN(err.Error()))
}

func hostOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return "invalid"
}

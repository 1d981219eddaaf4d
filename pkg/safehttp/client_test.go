package safehttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/omlabs/trustbound/internal/rate"
	log "github.com/omlabs/trustbound/pkg/logger"
)

func newClient(t *testing.T, timeout time.Duration, opts ...Option) *Client {
	t.Helper()
	c, err := New(zap.NewNop(), timeout, opts...)
	require.NoError(t, err)
	return c
}

// ─── Construction ─────────────────────────────────────────────────────────────

func TestNew_TimeoutIsMandatory(t *testing.T) {
	_, err := New(zap.NewNop(), 0)
	require.Error(t, err)

	_, err = New(zap.NewNop(), -time.Second)
	require.Error(t, err)
}

func TestNew_NilLoggerFallsBackToGlobal(t *testing.T) {
	c, err := New(nil, time.Second)
	require.NoError(t, err)
	assert.Same(t, log.L(), c.logger)
}

// ─── Success ──────────────────────────────────────────────────────────────────

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindSuccess, out.Kind())
	require.True(t, out.OK())

	var body map[string]string
	require.NoError(t, out.DecodeInto(&body))
	assert.Equal(t, "ok", body["result"])
}

// ─── Error-range statuses: no body parsing ───────────────────────────────────

func TestDo_ErrorStatusSkipsBodyParsing(t *testing.T) {
	// The bodies here are deliberately unparseable; a 4xx/5xx must surface as
	// HTTPError regardless of body content.
	for _, status := range []int{400, 401, 404, 422, 500, 503} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("<<<not json>>>"))
		}))

		out := newClient(t, 2*time.Second).Do(context.Background(), Request{
			Method: http.MethodGet,
			URL:    srv.URL,
		})
		srv.Close()

		require.Equal(t, KindHTTPError, out.Kind(), "status %d", status)
		assert.Equal(t, status, out.Status())
		assert.Nil(t, out.Payload())
	}
}

func TestDo_NoInternalRetry(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindHTTPError, out.Kind())
	assert.EqualValues(t, 1, count.Load(), "retry policy belongs to the caller")
}

// ─── Null / empty / malformed bodies ─────────────────────────────────────────

func TestDo_NullBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindDecodeError, out.Kind(), "null is not conflated with success")
	assert.Nil(t, out.Payload())
}

func TestDo_EmptyBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindDecodeError, out.Kind())
}

func TestDo_MalformedBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not-json"))
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindDecodeError, out.Kind())
	assert.Contains(t, out.Message(), "not valid JSON")
}

// ─── Timeout and transport failures ──────────────────────────────────────────

func TestDo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	out := newClient(t, 50*time.Millisecond).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindTimeout, out.Kind())
}

func TestDo_ConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // nothing listening anymore

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindTransportError, out.Kind())
	assert.NotEmpty(t, out.Message())
}

func TestDo_UnverifiableTLSIsTransportError(t *testing.T) {
	// httptest's TLS server uses a self-signed certificate. The client has no
	// way to skip verification, so the call must fail at the transport layer.
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    srv.URL,
	})

	require.Equal(t, KindTransportError, out.Kind())
	assert.Contains(t, strings.ToLower(out.Message()), "certificate")
}

func TestDo_InvalidURLIsTransportError(t *testing.T) {
	out := newClient(t, time.Second).Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    "://bad-url",
	})
	require.Equal(t, KindTransportError, out.Kind())
}

// ─── Rate limiting ────────────────────────────────────────────────────────────

func TestDo_RateLimitWaitHonorsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	mgr := rate.NewManager(rate.Config{RequestsPerSecond: 1, Burst: 1})
	client := newClient(t, 5*time.Second, WithRateLimiter(mgr))

	// First call drains the bucket.
	out := client.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.Equal(t, KindSuccess, out.Kind())

	// Second call cannot get a token before the context deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out = client.Do(ctx, Request{Method: http.MethodGet, URL: srv.URL})
	require.Equal(t, KindTimeout, out.Kind())
}

// ─── Redaction discipline ────────────────────────────────────────────────────

func TestDo_FailureLogsNeverCarryCredentials(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := New(logger, 2*time.Second)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer super-secret-token")
	header.Set("X-Api-Key", "api-key-value")

	out := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: header,
		Body:   map[string]string{"password": "request-body-secret"},
	})
	require.Equal(t, KindHTTPError, out.Kind())

	for _, entry := range logs.All() {
		line := entry.Message + " " + fmt.Sprint(entry.ContextMap())
		assert.NotContains(t, line, "super-secret-token")
		assert.NotContains(t, line, "api-key-value")
		assert.NotContains(t, line, "request-body-secret")
		assert.Contains(t, fmt.Sprint(entry.ContextMap()["headers"]), "***",
			"headers should be logged masked, not omitted")
	}
}

// ─── POST bodies ──────────────────────────────────────────────────────────────

func TestDo_PostMarshalsJSONBody(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = string(b)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	out := newClient(t, 2*time.Second).Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"value": "hello"},
	})

	require.Equal(t, KindSuccess, out.Kind())
	assert.JSONEq(t, `{"value":"hello"}`, received)
}

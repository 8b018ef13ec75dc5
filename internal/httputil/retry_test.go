// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

// fastPolicy keeps backoff tiny so tests finish quickly.
func fastPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.BackoffBase = time.Millisecond
	return p
}

func statusSequence(t *testing.T, calls *int32, codes ...int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(calls, 1))
		if n > len(codes) {
			n = len(codes)
		}
		w.WriteHeader(codes[n-1])
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDoWithRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	ts := statusSequence(t, &calls, http.StatusOK)

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, fastPolicy())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_RetryableStatusThen200(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls int32
			ts := statusSequence(t, &calls, code, code, http.StatusOK)

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			var events []RetryEvent
			p := fastPolicy()
			p.OnRetry = func(ev RetryEvent) { events = append(events, ev) }

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, p)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
			require.Len(t, events, 2)
			assert.Equal(t, code, events[0].StatusCode)
			assert.Equal(t, 1, events[0].Attempt)
			assert.Equal(t, 2, events[1].Attempt)
		})
	}
}

func TestDoWithRetry_ExhaustsAttempts(t *testing.T) {
	var calls int32
	ts := statusSequence(t, &calls, http.StatusTooManyRequests)

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, fastPolicy())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_NonRetryableStatusPassesThrough(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest, http.StatusNotFound} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls int32
			ts := statusSequence(t, &calls, code)

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, fastPolicy())
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, code, resp.StatusCode)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetry_NonIdempotentMethodNotRetried(t *testing.T) {
	var calls int32
	ts := statusSequence(t, &calls, http.StatusServiceUnavailable, http.StatusOK)

	req, err := http.NewRequest(http.MethodPost, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, fastPolicy())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_TransportErrorRetried(t *testing.T) {
	// Reserve a port, then close the listener so connections are refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	req, err := http.NewRequest(http.MethodGet, "http://"+addr, nil)
	require.NoError(t, err)

	var retries int
	p := fastPolicy()
	p.OnRetry = func(ev RetryEvent) {
		retries++
		assert.Error(t, ev.Err)
	}

	_, err = DoWithRetry(context.Background(), http.DefaultClient, req, p)
	require.Error(t, err)
	assert.Equal(t, 2, retries)
	assert.False(t, IsTimeout(err))
}

func TestDoWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	var calls int32
	ts := statusSequence(t, &calls, http.StatusServiceUnavailable)

	p := fastPolicy()
	p.BackoffBase = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	p.OnRetry = func(RetryEvent) { cancel() }

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_RetryAfterHonoured(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	var waits []time.Duration
	p := fastPolicy()
	p.MaxBackoff = 10 * time.Millisecond
	p.OnRetry = func(ev RetryEvent) { waits = append(waits, ev.Wait) }

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, p)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The 1s hint exceeds the computed backoff but is capped at MaxBackoff.
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, waits)
}

func TestBackoff(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 30*time.Second, p.Backoff(10))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(types.RetryConfig{MaxAttempts: 5, BackoffBase: 3 * time.Second})
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 3*time.Second, p.BackoffBase)
	assert.Equal(t, 2.0, p.BackoffFactor)
	assert.True(t, p.RetryableStatus[http.StatusGatewayTimeout])
	assert.True(t, p.RetryableMethods[http.MethodGet])
	assert.False(t, p.RetryableMethods[http.MethodPost])
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(context.Canceled))
	assert.True(t, IsTimeout(&net.OpError{Op: "dial", Err: timeoutErr{}}))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFetch_ReadsBodyInsideAttempt(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, body, err := Fetch(context.Background(), ts.Client(), req, fastPolicy(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_StalledBodyRetriedAsTimeout(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"response":{"numFound":1,`))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []RetryEvent
	p := fastPolicy()
	p.OnRetry = func(ev RetryEvent) { events = append(events, ev) }

	start := time.Now()
	_, _, err = Fetch(ctx, ts.Client(), req, p, 50*time.Millisecond)
	require.Error(t, err)

	var bte *BodyTimeoutError
	assert.ErrorAs(t, err, &bte)
	assert.True(t, IsTimeout(err))
	assert.NoError(t, ctx.Err())
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, events, 2)
	assert.Error(t, events[0].Err)
}

func TestFetch_SlowButSteadyBodySucceeds(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		for i := 0; i < 4; i++ {
			w.Write([]byte("ab"))
			w.(http.Flusher).Flush()
			time.Sleep(30 * time.Millisecond)
		}
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	// Total time exceeds idle but no single gap does.
	_, body, err := Fetch(context.Background(), ts.Client(), req, fastPolicy(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "abababab", string(body))
}

func TestRateLimitedTransport(t *testing.T) {
	var calls int32
	ts := statusSequence(t, &calls, http.StatusOK)

	client := &http.Client{Transport: NewRateLimitedTransport(ts.Client().Transport, 20)}
	start := time.Now()
	for i := 0; i < 3; i++ {
		resp, err := client.Get(ts.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	// The first request passes at once; two more need 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	base := ts.Client().Transport
	assert.Equal(t, base, NewRateLimitedTransport(base, 0))
}

func TestRateLimitedTransport_ContextCancelled(t *testing.T) {
	var calls int32
	ts := statusSequence(t, &calls, http.StatusOK)

	rt := &RateLimitedTransport{Base: ts.Client().Transport, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	require.True(t, rt.Limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

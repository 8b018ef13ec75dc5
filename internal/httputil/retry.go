// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP retry policy used by the API client.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

// RetryPolicy describes when and how a request is retried. A zero field
// takes its value from DefaultRetryPolicy.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BackoffBase is the wait before the first retry. Subsequent waits are
	// multiplied by BackoffFactor: base, base*f, base*f^2, ...
	BackoffBase   time.Duration
	BackoffFactor float64

	// MaxBackoff caps a single wait, including server Retry-After hints.
	MaxBackoff time.Duration

	// RetryableStatus lists status codes that trigger a retry.
	RetryableStatus map[int]bool

	// RetryableMethods lists methods that may be retried at all.
	RetryableMethods map[string]bool

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(RetryEvent)
}

// RetryEvent describes one failed attempt that is about to be retried.
// Exactly one of StatusCode and Err is set.
type RetryEvent struct {
	Attempt    int
	StatusCode int
	Err        error
	Wait       time.Duration
}

// DefaultRetryPolicy returns the policy for the search API: three attempts,
// 1s doubling backoff, retry on 429 and 5xx gateway errors, GET only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffBase:   time.Second,
		BackoffFactor: 2,
		MaxBackoff:    30 * time.Second,
		RetryableStatus: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
		RetryableMethods: map[string]bool{http.MethodGet: true},
	}
}

// PolicyFromConfig builds a policy from user configuration, falling back to
// DefaultRetryPolicy for unset fields.
func PolicyFromConfig(cfg types.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffBase > 0 {
		p.BackoffBase = cfg.BackoffBase
	}
	if cfg.BackoffFactor > 0 {
		p.BackoffFactor = cfg.BackoffFactor
	}
	if cfg.MaxBackoff > 0 {
		p.MaxBackoff = cfg.MaxBackoff
	}
	return p
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = d.BackoffBase
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = d.BackoffFactor
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.RetryableStatus == nil {
		p.RetryableStatus = d.RetryableStatus
	}
	if p.RetryableMethods == nil {
		p.RetryableMethods = d.RetryableMethods
	}
	return p
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	d := time.Duration(float64(p.BackoffBase) * math.Pow(p.BackoffFactor, float64(attempt)))
	if d > p.MaxBackoff || d < 0 {
		return p.MaxBackoff
	}
	return d
}

// DoWithRetry executes req and retries it according to policy.
//
// A response whose status is in RetryableStatus, or a transport error, is
// retried with exponential backoff while attempts remain and the method is
// retryable. Context cancellation is returned immediately and never
// retried. After exhausting attempts on a retryable status the last
// response is returned as-is so the caller can classify it; after
// exhausting attempts on a transport error the last error is returned.
// On each retried response the body is drained and closed before sleeping.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	resp, _, err := do(ctx, client, req, policy, false, 0)
	return resp, err
}

// Fetch is DoWithRetry with the body read inside each attempt. The read
// fails with a timeout error when no bytes arrive for idle; that failure
// and any other broken body are retried like transport errors. The
// returned response's Body is already consumed and closed. idle <= 0
// leaves the read unbounded.
func Fetch(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy, idle time.Duration) (*http.Response, []byte, error) {
	return do(ctx, client, req, policy, true, idle)
}

func do(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy, read bool, idle time.Duration) (*http.Response, []byte, error) {
	policy = policy.withDefaults()
	retryable := policy.RetryableMethods[req.Method]

	for attempt := 0; ; attempt++ {
		resp, body, err := attemptOnce(ctx, client, req, read, idle)
		last := !retryable || attempt+1 >= policy.MaxAttempts

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			if last {
				return nil, nil, err
			}
			if werr := policy.wait(ctx, RetryEvent{Attempt: attempt + 1, Err: err, Wait: policy.Backoff(attempt)}); werr != nil {
				return nil, nil, werr
			}
			continue
		}

		if !policy.RetryableStatus[resp.StatusCode] || last {
			return resp, body, nil
		}

		wait := policy.Backoff(attempt)
		if hint := retryAfter(resp); hint > wait {
			wait = min(hint, policy.MaxBackoff)
		}

		if !read {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if werr := policy.wait(ctx, RetryEvent{Attempt: attempt + 1, StatusCode: resp.StatusCode, Wait: wait}); werr != nil {
			return nil, nil, werr
		}
	}
}

// attemptOnce sends one copy of req. When read is set the body is read in
// full under its own cancellable context so a stalled body can be aborted
// without cancelling ctx.
func attemptOnce(ctx context.Context, client *http.Client, req *http.Request, read bool, idle time.Duration) (*http.Response, []byte, error) {
	if !read {
		resp, err := client.Do(req.Clone(ctx))
		return resp, nil, err
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := client.Do(req.Clone(attemptCtx))
	if err != nil {
		return nil, nil, err
	}
	body, err := readBody(resp.Body, idle, cancel)
	resp.Body.Close()
	if err != nil {
		return nil, nil, err
	}
	resp.Body = http.NoBody
	return resp, body, nil
}

// BodyTimeoutError reports a response body that stopped delivering bytes.
type BodyTimeoutError struct {
	Idle time.Duration
}

func (e *BodyTimeoutError) Error() string {
	return fmt.Sprintf("response body stalled for %v", e.Idle)
}

// Timeout marks the error as a timeout for IsTimeout.
func (e *BodyTimeoutError) Timeout() bool { return true }

// idleReader pushes back its timer whenever bytes arrive.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	idle  time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.idle)
	}
	return n, err
}

// readBody reads body in full, calling abort when no bytes arrive for idle.
func readBody(body io.Reader, idle time.Duration, abort context.CancelFunc) ([]byte, error) {
	if idle <= 0 {
		return io.ReadAll(body)
	}

	var stalled atomic.Bool
	timer := time.AfterFunc(idle, func() {
		stalled.Store(true)
		abort()
	})
	defer timer.Stop()

	data, err := io.ReadAll(&idleReader{r: body, timer: timer, idle: idle})
	if err != nil {
		if stalled.Load() {
			return nil, &BodyTimeoutError{Idle: idle}
		}
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

func (p RetryPolicy) wait(ctx context.Context, ev RetryEvent) error {
	if p.OnRetry != nil {
		p.OnRetry(ev)
	}
	t := time.NewTimer(ev.Wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryAfter parses a delay-seconds Retry-After header. HTTP-date values
// and malformed headers yield zero.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// IsTimeout reports whether err is a connect or read timeout. Caller
// cancellation is not a timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

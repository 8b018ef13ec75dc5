// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scix is the client for the ADS/SciX search API. It performs one
// authenticated, retried GET per Query call and returns a parsed result
// envelope or a typed *Error.
package scix

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/scix-harvest/internal/httputil"
	"github.com/pdiddy/scix-harvest/internal/metrics"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

// DefaultEndpoint is the ADS search endpoint.
const DefaultEndpoint = "https://api.adsabs.harvard.edu/v1/search/query"

const (
	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 60 * time.Second
)

// Client queries the search API. It holds one pooled *http.Client for its
// lifetime and is not safe for concurrent use with different options.
type Client struct {
	endpoint    string
	userAgent   string
	readTimeout time.Duration
	cred        Credential
	http        *http.Client
	policy      httputil.RetryPolicy
	log         *zap.Logger
	metrics     *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(url string) Option { return func(c *Client) { c.endpoint = url } }

// WithHTTPClient replaces the client built from HTTPConfig.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithRetryPolicy replaces httputil.DefaultRetryPolicy.
func WithRetryPolicy(p httputil.RetryPolicy) Option { return func(c *Client) { c.policy = p } }

// WithLogger sets the logger used for retry and failure messages.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithMetrics records request outcomes and retries.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }

// NewClient returns a client authenticating with cred.
func NewClient(cred Credential, cfg types.HTTPConfig, opts ...Option) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		userAgent:   cfg.UserAgent,
		readTimeout: cfg.ReadTimeout,
		cred:        cred,
		policy:      httputil.DefaultRetryPolicy(),
		log:         zap.NewNop(),
	}
	if c.readTimeout <= 0 {
		c.readTimeout = defaultReadTimeout
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(cfg)
	}
	return c
}

// NewHTTPClient builds an *http.Client with a connect timeout, a response
// header timeout and an optional request-rate ceiling. Zero timeouts use 10s
// and 60s. Body reads are bounded separately by Query.
func NewHTTPClient(cfg types.HTTPConfig) *http.Client {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = defaultConnectTimeout
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = defaultReadTimeout
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = connect
	tr.ResponseHeaderTimeout = read
	return &http.Client{Transport: httputil.NewRateLimitedTransport(tr, cfg.MaxRequestsPerSecond)}
}

// Query issues one search request for p.
func (c *Client) Query(ctx context.Context, p Params) (*Response, error) {
	if c.cred.IsZero() {
		return nil, &Error{Kind: KindConfig, Err: errors.New("no API credential")}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.query(ctx, p)
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		c.log.Debug("search request failed",
			zap.String("kind", outcome),
			zap.Int("start", p.Start),
			zap.Int("rows", p.Rows),
			zap.Error(err),
		)
	}
	c.metrics.ObserveRequest(outcome, time.Since(start))
	return resp, err
}

func (c *Client) query(ctx context.Context, p Params) (*Response, error) {
	reqURL := c.endpoint + "?" + p.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindConfig, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cred.token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	policy := c.policy
	policy.OnRetry = func(ev httputil.RetryEvent) {
		c.metrics.ObserveRetry(ev.StatusCode)
		fields := []zap.Field{
			zap.Int("attempt", ev.Attempt),
			zap.Duration("wait", ev.Wait),
			zap.Int("start", p.Start),
		}
		if ev.Err != nil {
			fields = append(fields, zap.Error(ev.Err))
		} else {
			fields = append(fields, zap.Int("status", ev.StatusCode))
		}
		c.log.Warn("retrying search request", fields...)
	}

	// The body read belongs to the attempt: a body that stalls for longer
	// than the read timeout is retried and ends as KindTimeout.
	resp, body, err := httputil.Fetch(ctx, c.http, req, policy, c.readTimeout)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return decodeResponse(body)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		// The body may echo request details; it never holds the token.
		return nil, &Error{Kind: KindAuth, StatusCode: code, Body: truncateBody(body)}
	case code == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimit, StatusCode: code, Body: truncateBody(body)}
	default:
		return nil, &Error{Kind: KindHTTP, StatusCode: code, Body: truncateBody(body)}
	}
}

func classifyTransport(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: ctx.Err()}
	case ctx.Err() != nil:
		return &Error{Kind: KindInterrupted, Err: ctx.Err()}
	case httputil.IsTimeout(err):
		return &Error{Kind: KindTimeout, Err: err}
	default:
		return &Error{Kind: KindNetwork, Err: err}
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedTransport holds every request, retries included, under a
// request-rate ceiling before passing it to Base.
type RateLimitedTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

// NewRateLimitedTransport allows perSecond requests per second with no
// burst. A non-positive perSecond returns base unchanged.
func NewRateLimitedTransport(base http.RoundTripper, perSecond float64) http.RoundTripper {
	if perSecond <= 0 {
		return base
	}
	return &RateLimitedTransport{Base: base, Limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// RoundTrip waits for the limiter, then sends req.
func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

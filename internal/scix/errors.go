// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scix

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure so callers can decide whether to abort,
// degrade or report.
type Kind string

const (
	// KindConfig is a missing or malformed credential or invalid parameters.
	KindConfig Kind = "config"
	// KindAuth is HTTP 401/403. Never retried.
	KindAuth Kind = "auth"
	// KindRateLimit is HTTP 429 after retries were exhausted.
	KindRateLimit Kind = "rate_limit"
	// KindTimeout is a connect or read timeout after retries were exhausted.
	KindTimeout Kind = "timeout"
	// KindNetwork is a DNS, refused or reset connection after retries.
	KindNetwork Kind = "network"
	// KindHTTP is any other non-2xx status after retries were exhausted.
	KindHTTP Kind = "http"
	// KindParse is a 2xx response whose body is not a valid result envelope.
	KindParse Kind = "parse"
	// KindInterrupted is cancellation of the caller's context.
	KindInterrupted Kind = "interrupted"
)

// Error is the typed failure returned by the client.
type Error struct {
	Kind Kind

	// StatusCode and Body are set for failures that carry an HTTP response.
	// Body is truncated to maxErrorBody bytes.
	StatusCode int
	Body       string

	Err error
}

const maxErrorBody = 2048

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err can never succeed on a later run without
// operator action (bad credential or parameters).
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindConfig || k == KindAuth
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scix

import "github.com/pdiddy/scix-harvest/internal/secrets"

// Credential is a validated bearer token. Its String and GoString methods
// redact the value so it cannot leak through logs or %v formatting.
type Credential struct {
	token string
}

// NewCredential validates token and wraps it. Failures are KindConfig.
func NewCredential(token string) (Credential, error) {
	if err := secrets.ValidateToken(token); err != nil {
		return Credential{}, &Error{Kind: KindConfig, Err: err}
	}
	return Credential{token: token}, nil
}

// LoadCredential reads the one-line token file at path. Failures are KindConfig.
func LoadCredential(path string) (Credential, error) {
	token, err := secrets.ReadToken(path)
	if err != nil {
		return Credential{}, &Error{Kind: KindConfig, Err: err}
	}
	return Credential{token: token}, nil
}

func (c Credential) String() string   { return "[redacted]" }
func (c Credential) GoString() string { return "scix.Credential{[redacted]}" }

// IsZero reports whether the credential holds no token.
func (c Credential) IsZero() bool { return c.token == "" }

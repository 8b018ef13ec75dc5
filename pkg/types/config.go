package types

import "time"

// HTTPConfig holds HTTP settings for the search API client.
type HTTPConfig struct {
	// ConnectTimeout bounds TCP/TLS connection setup (default 10s).
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`

	// ReadTimeout bounds the wait for response headers and any pause while
	// the body is streaming (default 60s).
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// MaxRequestsPerSecond caps the request rate across pages and retries;
	// zero disables the cap (default 1).
	MaxRequestsPerSecond float64 `json:"max_requests_per_second" yaml:"max_requests_per_second"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "scix-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetryConfig controls retry behaviour for transient API failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BackoffBase is the wait before the first retry (default 1s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffFactor multiplies the wait after each retry (default 2).
	BackoffFactor float64 `json:"backoff_factor" yaml:"backoff_factor"`

	// MaxBackoff caps any single wait, including Retry-After hints (default 30s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// SearchField names the document field the term is matched against.
type SearchField string

const (
	FieldBody     SearchField = "body"
	FieldFull     SearchField = "full"
	FieldTitle    SearchField = "title"
	FieldAbstract SearchField = "abstract"
)

// Valid reports whether f is one of the supported search fields.
func (f SearchField) Valid() bool {
	switch f {
	case FieldBody, FieldFull, FieldTitle, FieldAbstract:
		return true
	}
	return false
}

// MaxRowsPerPage is the provider-enforced ceiling on page size.
const MaxRowsPerPage = 2000

// HarvestConfig holds settings for one harvest run.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline"`

	Retry RetryConfig `json:"retry" yaml:"retry"`

	// Terms are OR-ed together inside the search field (default
	// "Planetary Data System").
	Terms []string `json:"terms" yaml:"terms"`

	// Field selects the searched field (default body).
	Field SearchField `json:"field" yaml:"field"`

	// MaxPages bounds the number of page requests (default 1).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// RowsPerPage is the page size, at most MaxRowsPerPage (default 100).
	RowsPerPage int `json:"rows_per_page" yaml:"rows_per_page"`

	// PageDelay is the mandatory pause between consecutive page requests (default 2s).
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`

	// OutputDir receives the result file, its manifest and the run ledger.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

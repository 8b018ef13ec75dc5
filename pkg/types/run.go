package types

import "time"

// RunStatus is the terminal state of a harvest run.
type RunStatus string

const (
	// RunRunning is written when a run starts; a manifest left in this
	// state means the process died without cleanup.
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// RunManifest describes how a result file was produced. It is written next
// to the result file so consumers can tell a complete harvest from a
// partial one without changing the result file layout.
type RunManifest struct {
	Status     RunStatus `json:"status" yaml:"status"`
	ErrorKind  string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Query      string    `json:"query" yaml:"query"`
	OutputPath string    `json:"output_path" yaml:"output_path"`

	// PageReached is the zero-based page being fetched when the run ended.
	PageReached  int `json:"page_reached" yaml:"page_reached"`
	PagesFetched int `json:"pages_fetched" yaml:"pages_fetched"`
	Documents    int `json:"documents" yaml:"documents"`
	NumFound     int `json:"num_found" yaml:"num_found"`
	Conflicts    int `json:"conflicts" yaml:"conflicts"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

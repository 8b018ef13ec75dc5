// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives a paginated highlight search and persists the
// accumulated ResultSet.
//
// Pages are fetched strictly one at a time: whether page N+1 is needed
// depends on page N's reported total, and a fixed pause separates the end
// of one page from the request for the next. Results gathered so far are written after every
// page and again on every exit path (completed, failed, interrupted).
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/scix-harvest/internal/metrics"
	"github.com/pdiddy/scix-harvest/internal/scix"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

// DefaultTerm is searched when no term is configured.
const DefaultTerm = "Planetary Data System"

// DefaultConfig returns the harvest defaults.
func DefaultConfig() types.HarvestConfig {
	return types.HarvestConfig{
		HTTPConfig: types.HTTPConfig{
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    60 * time.Second,
			UserAgent:      "scix-harvest",

			MaxRequestsPerSecond: 1,
		},
		Retry: types.RetryConfig{
			MaxAttempts:   3,
			BackoffBase:   time.Second,
			BackoffFactor: 2,
			MaxBackoff:    30 * time.Second,
		},
		Terms:       []string{DefaultTerm},
		Field:       types.FieldBody,
		MaxPages:    1,
		RowsPerPage: 100,
		PageDelay:   2 * time.Second,
		OutputDir:   "./pds_mentions_results",
	}
}

// Searcher issues one search request. *scix.Client implements it.
type Searcher interface {
	Query(ctx context.Context, p scix.Params) (*scix.Response, error)
}

// Recorder stores the manifest of each finished run, e.g. in a run ledger.
type Recorder interface {
	RecordRun(ctx context.Context, m types.RunManifest) error
}

// Harvester runs harvests against a Searcher.
type Harvester struct {
	client   Searcher
	log      *zap.Logger
	metrics  *metrics.Metrics
	recorder Recorder
	now      func() time.Time
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithLogger sets the logger for progress and failure messages.
func WithLogger(l *zap.Logger) Option { return func(h *Harvester) { h.log = l } }

// WithMetrics records page, document and conflict counts.
func WithMetrics(m *metrics.Metrics) Option { return func(h *Harvester) { h.metrics = m } }

// WithRecorder stores every run manifest when the run ends.
func WithRecorder(r Recorder) Option { return func(h *Harvester) { h.recorder = r } }

// New returns a Harvester that fetches pages through client.
func New(client Searcher, opts ...Option) *Harvester {
	h := &Harvester{
		client: client,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Validate rejects configurations that cannot start a run, including terms
// that build no query. Failures are KindConfig so callers map them to the
// configuration exit status. Run calls it before touching the output
// directory.
func Validate(cfg types.HarvestConfig) error {
	if err := validateSettings(cfg); err != nil {
		return err
	}
	_, err := scix.BuildQuery(cfg.Field, cfg.Terms)
	return err
}

func validateSettings(cfg types.HarvestConfig) error {
	var problem string
	switch {
	case !cfg.Field.Valid():
		problem = fmt.Sprintf("search field %q: want body, full, title or abstract", cfg.Field)
	case cfg.MaxPages < 1:
		problem = fmt.Sprintf("max pages %d: must be positive", cfg.MaxPages)
	case cfg.RowsPerPage < 1 || cfg.RowsPerPage > types.MaxRowsPerPage:
		problem = fmt.Sprintf("rows per page %d: must be in 1..%d", cfg.RowsPerPage, types.MaxRowsPerPage)
	case cfg.PageDelay < 0:
		problem = fmt.Sprintf("page delay %v: must not be negative", cfg.PageDelay)
	case cfg.OutputDir == "":
		problem = "output directory is empty"
	default:
		return nil
	}
	return &scix.Error{Kind: scix.KindConfig, Err: errors.New(problem)}
}

// Run harvests up to cfg.MaxPages pages and returns the run manifest.
//
// The manifest is returned on every path, including failures. When err is
// non-nil the result file still holds every document merged from the pages
// fetched before the failure, and the manifest status is failed or
// interrupted.
func (h *Harvester) Run(ctx context.Context, cfg types.HarvestConfig) (m types.RunManifest, err error) {
	if err := Validate(cfg); err != nil {
		return m, err
	}
	query, err := scix.BuildQuery(cfg.Field, cfg.Terms)
	if err != nil {
		return m, err
	}

	sink, err := OpenSink(cfg.OutputDir, OutputName(cfg.Field, cfg.Terms))
	if err != nil {
		return m, err
	}

	acc := NewAccumulator()
	m = types.RunManifest{
		Status:     types.RunRunning,
		Query:      query,
		OutputPath: sink.Path(),
		StartedAt:  h.now().UTC(),
	}
	if err := sink.WriteManifest(m); err != nil {
		return m, err
	}

	log := h.log.With(zap.String("query", query), zap.String("output", sink.Path()))
	log.Info("harvest started",
		zap.Int("max_pages", cfg.MaxPages),
		zap.Int("rows_per_page", cfg.RowsPerPage),
	)

	defer func() {
		m = h.finish(ctx, log, sink, acc, m, err)
	}()

	primary := scix.HighlightFields(cfg.Field)[0]
	retrieved := 0

	for page := 0; page < cfg.MaxPages; page++ {
		m.PageReached = page

		// The pause runs after the previous page has been merged, so it
		// adds to whatever time that page and its retries took.
		if page > 0 {
			if err := pause(ctx, cfg.PageDelay); err != nil {
				return m, stopped(ctx)
			}
		}

		log.Info("harvesting page", zap.Int("page", page))
		resp, err := h.client.Query(ctx, scix.PageParams(query, cfg.Field, page, cfg.RowsPerPage))
		if err != nil {
			return m, fmt.Errorf("page %d: %w", page, err)
		}

		docs := resp.Response.Docs
		added := h.mergePage(log, acc, resp, primary)
		retrieved += len(docs)

		m.PagesFetched++
		m.NumFound = resp.Response.NumFound
		m.Documents = acc.Len()
		m.Conflicts = acc.Conflicts()
		h.metrics.ObservePage(len(docs))

		if err := sink.WriteResults(acc.Set()); err != nil {
			return m, err
		}
		log.Info("page merged",
			zap.Int("page", page),
			zap.Int("docs", len(docs)),
			zap.Int("added", added),
			zap.Int("documents", acc.Len()),
			zap.Int("num_found", resp.Response.NumFound),
		)

		if len(docs) == 0 || retrieved >= resp.Response.NumFound {
			break
		}
		if ctx.Err() != nil {
			return m, stopped(ctx)
		}
	}

	return m, nil
}

// mergePage extracts every document of resp into acc and returns how many
// identifiers were new.
func (h *Harvester) mergePage(log *zap.Logger, acc *Accumulator, resp *scix.Response, field string) int {
	added := 0
	for _, doc := range resp.Response.Docs {
		id := docID(doc)
		if id == "" {
			log.Warn("skipping document without identifier")
			continue
		}
		rec := extractRecord(doc, resp.Highlighting[id], field)
		switch acc.Merge(id, rec) {
		case Added:
			added++
		case Conflict:
			h.metrics.ObserveConflict()
			log.Warn("document returned again with different content, keeping first", zap.String("id", id))
		}
	}
	return added
}

// finish persists the final ResultSet and manifest, records the run and
// logs the summary. It runs on every exit path of Run.
func (h *Harvester) finish(ctx context.Context, log *zap.Logger, sink *Sink, acc *Accumulator, m types.RunManifest, runErr error) types.RunManifest {
	m.Documents = acc.Len()
	m.Conflicts = acc.Conflicts()
	m.FinishedAt = h.now().UTC()
	m.Status = statusOf(runErr)
	if runErr != nil {
		m.ErrorKind = string(scix.KindOf(runErr))
		m.Error = runErr.Error()
	}

	if err := sink.WriteResults(acc.Set()); err != nil {
		log.Error("saving results failed", zap.Error(err))
	}
	if err := sink.WriteManifest(m); err != nil {
		log.Error("saving run manifest failed", zap.Error(err))
	}
	if h.recorder != nil {
		if err := h.recorder.RecordRun(context.WithoutCancel(ctx), m); err != nil {
			log.Warn("recording run failed", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("status", string(m.Status)),
		zap.Int("page_reached", m.PageReached),
		zap.Int("pages_fetched", m.PagesFetched),
		zap.Int("documents", m.Documents),
		zap.Int("num_found", m.NumFound),
	}
	switch m.Status {
	case types.RunCompleted:
		log.Info("harvest completed", fields...)
	case types.RunInterrupted:
		log.Warn("harvest interrupted, partial results saved", fields...)
	default:
		log.Error("harvest aborted, partial results saved",
			append(fields, zap.String("kind", m.ErrorKind), zap.Error(runErr))...)
	}
	return m
}

func statusOf(err error) types.RunStatus {
	switch {
	case err == nil:
		return types.RunCompleted
	case scix.KindOf(err) == scix.KindInterrupted, errors.Is(err, context.Canceled):
		return types.RunInterrupted
	default:
		return types.RunFailed
	}
}

// stopped wraps a context end observed outside the client: a deadline is a
// timeout, anything else an interruption.
func stopped(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return &scix.Error{Kind: scix.KindTimeout, Err: err}
	}
	return &scix.Error{Kind: scix.KindInterrupted, Err: err}
}

// pause waits d unless ctx ends first. d <= 0 returns at once.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

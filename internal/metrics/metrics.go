// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records per-run Prometheus counters for the harvester.
// Each run owns its own registry; the CLI can dump it in the node_exporter
// textfile format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one harvest run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RetriesTotal    *prometheus.CounterVec
	PagesTotal      prometheus.Counter
	DocumentsTotal  prometheus.Counter
	ConflictsTotal  prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scix_harvest_requests_total",
				Help: "Search API requests by outcome (ok or error kind)",
			},
			[]string{"outcome"},
		),
		RequestDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scix_harvest_request_duration_seconds",
				Help:    "Duration of search API requests including retries",
				Buckets: prometheus.DefBuckets,
			},
		),
		RetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scix_harvest_retries_total",
				Help: "Retried attempts by trigger (HTTP status or transport)",
			},
			[]string{"reason"},
		),
		PagesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "scix_harvest_pages_total",
			Help: "Result pages fetched",
		}),
		DocumentsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "scix_harvest_documents_total",
			Help: "Document entries returned by the provider",
		}),
		ConflictsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "scix_harvest_conflicts_total",
			Help: "Repeated document identifiers whose content differed",
		}),
	}
}

// ObserveRequest records one logical request.
func (m *Metrics) ObserveRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

// ObserveRetry records one retried attempt. status 0 means a transport error.
func (m *Metrics) ObserveRetry(status int) {
	if m == nil {
		return
	}
	reason := "transport"
	if status != 0 {
		reason = strconv.Itoa(status)
	}
	m.RetriesTotal.WithLabelValues(reason).Inc()
}

// ObservePage records a fetched page and its document count.
func (m *Metrics) ObservePage(docs int) {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
	m.DocumentsTotal.Add(float64(docs))
}

// ObserveConflict records a conflicting duplicate identifier.
func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.ConflictsTotal.Inc()
}

// WriteTextfile writes the registry to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

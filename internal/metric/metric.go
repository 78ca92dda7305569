// Package metric provides Prometheus collectors for the book processing
// pipeline. All recording helpers are nil-safe so components can run without
// metrics wired (tests, one-off CLI invocations).
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the pipeline-level Prometheus collectors.
type Metrics struct {
	PagesIngested   *prometheus.CounterVec
	FilesProcessed  *prometheus.CounterVec
	OCRAttempts     prometheus.Counter
	OCRPagesRead    prometheus.Counter
	SearchesTotal   *prometheus.CounterVec
	EmbeddingsTotal *prometheus.CounterVec
}

// New creates the Metrics instance and registers every collector on reg.
// A nil registerer skips registration, which keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PagesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "ingest",
				Name:      "pages_total",
				Help:      "Total number of pages persisted, by extraction method",
			},
			[]string{"method"},
		),
		FilesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "ingest",
				Name:      "files_total",
				Help:      "Total number of uploaded files processed, by status",
			},
			[]string{"status"},
		),
		OCRAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "ocr",
				Name:      "attempts_total",
				Help:      "Total number of OCR recognition attempts across all configurations",
			},
		),
		OCRPagesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "ocr",
				Name:      "pages_total",
				Help:      "Total number of page images routed through the OCR subsystem",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "search",
				Name:      "queries_total",
				Help:      "Total number of search queries executed, by kind",
			},
			[]string{"kind"},
		),
		EmbeddingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "maktaba",
				Subsystem: "embedding",
				Name:      "requests_total",
				Help:      "Total number of embedding requests, by outcome",
			},
			[]string{"outcome"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.PagesIngested,
			m.FilesProcessed,
			m.OCRAttempts,
			m.OCRPagesRead,
			m.SearchesTotal,
			m.EmbeddingsTotal,
		)
	}

	return m
}

// PageIngested records one persisted page for the given extraction method.
func (m *Metrics) PageIngested(method string) {
	if m == nil {
		return
	}
	m.PagesIngested.WithLabelValues(method).Inc()
}

// FileProcessed records one processed upload with its final status.
func (m *Metrics) FileProcessed(status string) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(status).Inc()
}

// OCRAttempt records a single recognition attempt.
func (m *Metrics) OCRAttempt() {
	if m == nil {
		return
	}
	m.OCRAttempts.Inc()
}

// OCRPage records one page image routed through the OCR subsystem.
func (m *Metrics) OCRPage() {
	if m == nil {
		return
	}
	m.OCRPagesRead.Inc()
}

// SearchExecuted records one search query of the given kind.
func (m *Metrics) SearchExecuted(kind string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(kind).Inc()
}

// EmbeddingRequest records one embedding request outcome ("ok" or "failed").
func (m *Metrics) EmbeddingRequest(outcome string) {
	if m == nil {
		return
	}
	m.EmbeddingsTotal.WithLabelValues(outcome).Inc()
}

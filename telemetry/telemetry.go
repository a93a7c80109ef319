// Package telemetry counts what the tracer pipeline does with each error,
// breadcrumb and payload. Every agent owns its own registry.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tracer"

// Reasons a report was not sent.
const (
	ReasonIgnoredError = "ignored_error"
	ReasonIgnoredURL   = "ignored_url"
	ReasonDuplicate    = "duplicate"
)

// Payload kinds.
const (
	KindException   = "exception"
	KindPerformance = "performance"
)

// Metrics holds the pipeline counters. A nil *Metrics counts nothing.
type Metrics struct {
	registry *prometheus.Registry

	reportsSent       *prometheus.CounterVec
	reportsDropped    *prometheus.CounterVec
	breadcrumbs       *prometheus.CounterVec
	transportFailures *prometheus.CounterVec
	analyzed          *prometheus.CounterVec
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reportsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_sent_total",
			Help:      "Payloads handed to the transport.",
		}, []string{"kind"}),
		reportsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_dropped_total",
			Help:      "Reports filtered out or suppressed as duplicates.",
		}, []string{"reason"}),
		breadcrumbs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breadcrumbs_total",
			Help:      "Breadcrumbs captured.",
		}, []string{"category"}),
		transportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_failures_total",
			Help:      "Payloads whose transport reported an error.",
		}, []string{"kind"}),
		analyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stacks_analyzed_total",
			Help:      "Analyzed stacks by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.reportsSent,
		m.reportsDropped,
		m.breadcrumbs,
		m.transportFailures,
		m.analyzed,
	)
	return m
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the counters in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PayloadSent(kind string) {
	if m == nil {
		return
	}
	m.reportsSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReportDropped(reason string) {
	if m == nil {
		return
	}
	m.reportsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) BreadcrumbCaptured(category string) {
	if m == nil {
		return
	}
	m.breadcrumbs.WithLabelValues(category).Inc()
}

func (m *Metrics) TransportFailed(kind string) {
	if m == nil {
		return
	}
	m.transportFailures.WithLabelValues(kind).Inc()
}

// StackAnalyzed counts one analysis. outcome is "complete", "partial" or
// "incomplete".
func (m *Metrics) StackAnalyzed(outcome string) {
	if m == nil {
		return
	}
	m.analyzed.WithLabelValues(outcome).Inc()
}

// Counter returns the current value of one labelled counter, for tests and
// the demo. Unknown names return 0.
func (m *Metrics) Counter(name, label string) float64 {
	vecs := map[string]*prometheus.CounterVec{
		"payloads_sent":      m.reportsSent,
		"reports_dropped":    m.reportsDropped,
		"breadcrumbs":        m.breadcrumbs,
		"transport_failures": m.transportFailures,
		"stacks_analyzed":    m.analyzed,
	}
	vec, ok := vecs[name]
	if !ok {
		return 0
	}
	return counterValue(vec.WithLabelValues(label))
}

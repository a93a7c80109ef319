package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	m := New()

	m.PayloadSent(KindException)
	m.PayloadSent(KindException)
	m.ReportDropped(ReasonDuplicate)
	m.BreadcrumbCaptured("ui.click")
	m.TransportFailed(KindPerformance)
	m.StackAnalyzed("partial")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reportsSent.WithLabelValues(KindException)))
	assert.Equal(t, 2.0, m.Counter("payloads_sent", KindException))
	assert.Equal(t, 1.0, m.Counter("reports_dropped", ReasonDuplicate))
	assert.Equal(t, 0.0, m.Counter("reports_dropped", ReasonIgnoredURL))
	assert.Equal(t, 1.0, m.Counter("breadcrumbs", "ui.click"))
	assert.Equal(t, 1.0, m.Counter("transport_failures", KindPerformance))
	assert.Equal(t, 1.0, m.Counter("stacks_analyzed", "partial"))
	assert.Equal(t, 0.0, m.Counter("unknown", "x"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PayloadSent(KindException)
		m.ReportDropped(ReasonIgnoredError)
		m.BreadcrumbCaptured("xhr")
		m.TransportFailed(KindException)
		m.StackAnalyzed("complete")
	})
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.BreadcrumbCaptured("navigation")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tracer_breadcrumbs_total{category="navigation"} 1`)
}

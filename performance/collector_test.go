package performance

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/browser/browsertest"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/telemetry"
	"github.com/lognitor/go-tracer/writers"
)

func sampleTiming() browser.NavigationTiming {
	return browser.NavigationTiming{
		NavigationStart:          1000,
		RedirectStart:            1000,
		RedirectEnd:              1010,
		FetchStart:               1010,
		DomainLookupStart:        1010,
		DomainLookupEnd:          1030,
		ConnectStart:             1030,
		SecureConnectionStart:    1050,
		ConnectEnd:               1080,
		RequestStart:             1080,
		ResponseStart:            1200,
		ResponseEnd:              1300,
		DomLoading:               1310,
		DomInteractive:           1500,
		DomContentLoadedEventEnd: 1600,
		DomComplete:              1900,
		LoadEventStart:           1950,
		LoadEventEnd:             1960,
	}
}

func samplePerformance() *browsertest.Performance {
	return &browsertest.Performance{
		NavigationTiming: sampleTiming(),
		NavigationInfo:   browser.NavigationInfo{Type: 1, RedirectCount: 2},
		Entries: []browser.ResourceEntry{
			{Name: "https://shop.test/app.js", InitiatorType: "script", Duration: 12.3456, TransferSize: 2048},
			{Name: "https://shop.test/logo.png", InitiatorType: "img", Duration: 3, TransferSize: 512},
		},
	}
}

func newCollector(t *testing.T, b *browsertest.Browser, opts ...Option) *Collector {
	t.Helper()
	cfg, _, err := configs.FromMap(map[string]any{
		"apiKey":         "key",
		"performanceUrl": "https://collector.test/perf",
	})
	require.NoError(t, err)
	return NewCollector(cfg, b.Page, writers.NewBrowserTransport(b.Page), opts...)
}

func TestCollect(t *testing.T) {
	b := browsertest.New(browsertest.WithHref("https://shop.test:8443/cart?id=1"), browsertest.WithPerformance(samplePerformance()))
	col := newCollector(t, b).Collect()
	require.NotNil(t, col)

	assert.Equal(t, 10.0, col.Redirect)
	assert.Equal(t, 20.0, col.DNS)
	assert.Equal(t, 50.0, col.TCP)
	assert.Equal(t, 20.0, col.TLS)
	assert.Equal(t, 200.0, col.FirstPaint)
	assert.Equal(t, 300.0, col.Network)
	assert.Equal(t, 600.0, col.DOM)
	assert.Equal(t, 600.0, col.FirstScreen)
	assert.Equal(t, 500.0, col.Interactive)
	assert.Equal(t, 950.0, col.PageLoad)
	assert.Equal(t, 2, col.RedirectCount)
	assert.Equal(t, 1, col.NavigationType)

	assert.Equal(t, []Resource{
		{URL: "https://shop.test/app.js", Tag: "script", Duration: "12.35", Size: 2048},
		{URL: "https://shop.test/logo.png", Tag: "img", Duration: "3.00", Size: 512},
	}, col.Resources)

	assert.Equal(t, "Mozilla/5.0 (browsertest)", col.UserAgent)
	assert.Equal(t, "https://shop.test:8443/cart?id=1", col.URL)
	assert.Equal(t, "https:", col.Protocol)
	assert.Equal(t, "https://shop.test:8443", col.Domain)
	assert.Equal(t, "key", col.APIKey)

	var timing browser.NavigationTiming
	require.NoError(t, json.Unmarshal([]byte(col.Timing), &timing))
	assert.Equal(t, sampleTiming(), timing)
}

func TestCollectWithoutSecureConnection(t *testing.T) {
	perf := samplePerformance()
	perf.NavigationTiming.SecureConnectionStart = 0
	b := browsertest.New(browsertest.WithPerformance(perf))

	assert.Zero(t, newCollector(t, b).Collect().TLS)
}

func TestCollectReadsOnce(t *testing.T) {
	perf := samplePerformance()
	b := browsertest.New(browsertest.WithPerformance(perf))
	c := newCollector(t, b)

	first := c.Collect()
	perf.NavigationTiming.DomComplete = 5000
	assert.Same(t, first, c.Collect())
	assert.Equal(t, 600.0, c.Collect().DOM)
}

func TestCollectWithoutPerformance(t *testing.T) {
	b := browsertest.New(browsertest.WithBeacon())
	c := newCollector(t, b)

	assert.Nil(t, c.Collect())
	assert.False(t, c.Dispatch())
	assert.Empty(t, b.Beacons())
}

func TestDispatchPrefersBeacon(t *testing.T) {
	metrics := telemetry.New()
	b := browsertest.New(browsertest.WithBeacon(), browsertest.WithPerformance(samplePerformance()))
	c := newCollector(t, b, WithMetrics(metrics))

	assert.True(t, c.Dispatch())
	assert.False(t, c.Dispatch())

	beacons := b.Beacons()
	require.Len(t, beacons, 1)
	assert.Equal(t, "https://collector.test/perf", beacons[0].URL)
	assert.Empty(t, b.Requests())

	var got map[string]any
	require.NoError(t, json.Unmarshal(beacons[0].Data, &got))
	assert.Equal(t, 600.0, got["dom"])
	assert.Equal(t, "key", got["apiKey"])
	assert.Equal(t, 1.0, metrics.Counter("payloads_sent", telemetry.KindPerformance))
}

func TestDispatchFallsBackToTransport(t *testing.T) {
	b := browsertest.New(browsertest.WithAutoRespond(200), browsertest.WithPerformance(samplePerformance()))

	assert.True(t, newCollector(t, b).Dispatch())

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.Equal(t, "https://collector.test/perf", reqs[0].URL)
}

func TestDispatchSkipsUnfinishedPage(t *testing.T) {
	perf := samplePerformance()
	perf.NavigationTiming.DomComplete = 0
	b := browsertest.New(browsertest.WithBeacon(), browsertest.WithPerformance(perf))
	c := newCollector(t, b)

	assert.Less(t, c.Collect().DOM, 0.0)
	assert.False(t, c.Dispatch())
	assert.Empty(t, b.Beacons())
}

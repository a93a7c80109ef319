// Package performance reads navigation and resource timing once per page and
// ships it to the collector on unload.
package performance

import (
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/lognitor/go-tracer/breadcrumbs"
	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/telemetry"
	"github.com/lognitor/go-tracer/writers"
)

// Resource is one loaded sub-resource. Duration keeps two decimals.
type Resource struct {
	URL      string `json:"url"`
	Tag      string `json:"tag"`
	Duration string `json:"duration"`
	Size     int64  `json:"size"`
}

// Collection is the performance payload. Durations are in milliseconds.
type Collection struct {
	Redirect    float64 `json:"redirect"`
	DNS         float64 `json:"dns"`
	TCP         float64 `json:"tcp"`
	TLS         float64 `json:"tls"`
	FirstPaint  float64 `json:"firstPaint"`
	Network     float64 `json:"network"`
	DOM         float64 `json:"dom"`
	// FirstScreen is domContentLoadedEventEnd based and not reliable.
	FirstScreen float64 `json:"firstScreen"`
	Interactive float64 `json:"interactive"`
	PageLoad    float64 `json:"pageLoad"`

	RedirectCount  int        `json:"redirectCount"`
	NavigationType int        `json:"navigationType"`
	Resources      []Resource `json:"resources"`

	UserAgent string `json:"userAgent"`
	URL       string `json:"url"`
	Protocol  string `json:"protocol"`
	APIKey    string `json:"apiKey"`
	Domain    string `json:"domain"`
	// Timing is the raw navigation timing as a JSON string.
	Timing string `json:"timing"`
}

// Collector owns the performance payload of one page.
type Collector struct {
	cfg       *configs.Config
	page      *browser.Page
	transport writers.Transport
	metrics   *telemetry.Metrics

	collectOnce  sync.Once
	collection   *Collection
	dispatchOnce sync.Once
}

type Option func(c *Collector)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// NewCollector creates a collector. transport is used when the page has no
// sendBeacon.
func NewCollector(cfg *configs.Config, page *browser.Page, transport writers.Transport, opts ...Option) *Collector {
	c := &Collector{
		cfg:       cfg,
		page:      page,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect reads the timing data on the first call and returns the same
// collection afterwards. It returns nil when the page has no performance
// API.
func (c *Collector) Collect() *Collection {
	c.collectOnce.Do(func() {
		if c.page == nil || c.page.Performance == nil {
			return
		}
		c.collection = c.read()
	})
	return c.collection
}

func (c *Collector) read() *Collection {
	perf := c.page.Performance
	t := perf.Timing()
	nav := perf.Navigation()

	col := &Collection{
		Redirect:    t.RedirectEnd - t.RedirectStart,
		DNS:         t.DomainLookupEnd - t.DomainLookupStart,
		TCP:         t.ConnectEnd - t.ConnectStart,
		FirstPaint:  t.ResponseStart - t.NavigationStart,
		Network:     t.ResponseEnd - t.NavigationStart,
		DOM:         t.DomComplete - t.ResponseEnd,
		FirstScreen: t.DomContentLoadedEventEnd - t.NavigationStart,
		Interactive: t.DomInteractive - t.NavigationStart,
		PageLoad:    t.LoadEventStart - t.NavigationStart,

		RedirectCount:  nav.RedirectCount,
		NavigationType: nav.Type,
		Resources:      []Resource{},

		URL:    c.page.Href(),
		APIKey: c.cfg.APIKey(),
	}
	// no secure handshake happened
	if t.SecureConnectionStart != 0 {
		col.TLS = t.SecureConnectionStart - t.ConnectStart
	}

	for _, entry := range perf.Resources() {
		col.Resources = append(col.Resources, Resource{
			URL:      entry.Name,
			Tag:      entry.InitiatorType,
			Duration: strconv.FormatFloat(entry.Duration, 'f', 2, 64),
			Size:     entry.TransferSize,
		})
	}

	if c.page.Navigator != nil {
		col.UserAgent = c.page.Navigator.UserAgent()
	}
	if loc, ok := breadcrumbs.ParseURL(col.URL); ok && loc.Protocol != "" {
		col.Protocol = loc.Protocol + ":"
		col.Domain = col.Protocol + "//" + loc.Host
	}
	if raw, err := json.Marshal(t); err == nil {
		col.Timing = string(raw)
	}

	return col
}

// Dispatch sends the collection to performanceUrl, at most once per
// collector. Nothing is sent before the document finished loading. It
// reports whether the payload was handed to a transport.
func (c *Collector) Dispatch() bool {
	sent := false
	c.dispatchOnce.Do(func() {
		col := c.Collect()
		if col == nil || col.DOM < 0 {
			return
		}

		c.metrics.PayloadSent(telemetry.KindPerformance)
		writers.NewBeacon(c.page, c.transport).MakeRequest(writers.Request{
			URL:  c.cfg.PerformanceURL(),
			Data: col,
			OnError: func(error) {
				c.metrics.TransportFailed(telemetry.KindPerformance)
			},
		})
		sent = true
	})
	return sent
}

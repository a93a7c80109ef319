// Package breadcrumbs records what happened on the page before an error:
// clicks and blurs, XHR traffic, history navigation and console calls.
package breadcrumbs

import (
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/telemetry"
)

// Categories recorded by the built-in sources.
const (
	CategoryClick      = "ui.click"
	CategoryInput      = "ui.input"
	CategoryXHR        = "xhr"
	CategoryNavigation = "navigation"
	CategoryConsole    = "console"
)

// Crumb is one recorded event.
type Crumb struct {
	Category  string            `json:"category"`
	Timestamp int64             `json:"timestamp"`
	Type      string            `json:"type,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
	Level     string            `json:"level,omitempty"`
	HTMLTree  string            `json:"htmlTree,omitempty"`
}

// Recorder owns the breadcrumb buffer of one agent.
type Recorder struct {
	ring    *Ring[Crumb]
	clock   clock.Clock
	metrics *telemetry.Metrics

	mu       sync.Mutex
	page     *browser.Page
	lastHref string
}

// Option configures a Recorder.
type Option func(r *Recorder)

// WithClock stamps crumbs with c instead of the wall clock.
func WithClock(c clock.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithMetrics counts captured crumbs per category.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder creates a recorder keeping the max most recent crumbs.
func NewRecorder(max int, opts ...Option) *Recorder {
	r := &Recorder{
		ring:  NewRing[Crumb](max),
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capture stamps crumb with the current time and appends it. The oldest
// crumb is evicted once the buffer is full.
func (r *Recorder) Capture(crumb Crumb) {
	crumb.Timestamp = r.clock.Now().UnixMilli()
	r.ring.Push(crumb)
	r.metrics.BreadcrumbCaptured(crumb.Category)
}

// Snapshot returns the buffered crumbs oldest first.
func (r *Recorder) Snapshot() []Crumb {
	return r.ring.All()
}

// Len returns the number of buffered crumbs.
func (r *Recorder) Len() int {
	return r.ring.Len()
}

// Install hooks the enabled sources into page. Members already patched on
// the page, by this or another recorder, are left alone.
func (r *Recorder) Install(page *browser.Page, sources configs.AutoBreadcrumbs) {
	if page == nil {
		return
	}

	r.mu.Lock()
	r.page = page
	r.lastHref = page.Href()
	r.mu.Unlock()

	if sources.DOM {
		r.installDOM(page)
	}
	if sources.XHR {
		r.installXHR(page)
	}
	if sources.Location {
		r.installNavigation(page)
	}
	if sources.Console {
		r.installConsole(page)
	}
}

// Package report turns analyzed stacks into collector reports. It applies
// the ignore patterns, shapes frames, snapshots breadcrumbs and the page
// environment, and suppresses a report identical to the last one sent.
package report

import (
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/lognitor/go-tracer/breadcrumbs"
	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/stack"
	"github.com/lognitor/go-tracer/telemetry"
	"github.com/lognitor/go-tracer/writers"
)

// Lifecycle events.
const (
	EventHandle  = "handle"
	EventSuccess = "success"
	EventFailure = "failure"
)

// Event is passed to the EventHandler. StackInfo is set for EventHandle,
// Report and URL for the others, Err for EventFailure.
type Event struct {
	Type      string
	StackInfo *stack.StackInfo
	Report    *Report
	URL       string
	Err       error
}

type EventHandler func(e Event)

// Breadcrumbs is the breadcrumb source read at send time.
type Breadcrumbs interface {
	Snapshot() []breadcrumbs.Crumb
}

// Assembler builds and sends reports for one agent.
type Assembler struct {
	cfg       *configs.Config
	page      *browser.Page
	crumbs    Breadcrumbs
	transport writers.Transport
	env       Environment

	clock   clock.Clock
	metrics *telemetry.Metrics
	events  EventHandler
	guid    func() string

	mu         sync.Mutex
	lastGUID   string
	lastReport *Report
}

// Option configures an Assembler.
type Option func(a *Assembler)

func WithClock(c clock.Clock) Option {
	return func(a *Assembler) { a.clock = c }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// WithEvents receives handle, success and failure events.
func WithEvents(fn EventHandler) Option {
	return func(a *Assembler) { a.events = fn }
}

// WithGUID replaces NewGUID.
func WithGUID(fn func() string) Option {
	return func(a *Assembler) { a.guid = fn }
}

// NewAssembler snapshots the page environment once. crumbs may be nil.
func NewAssembler(cfg *configs.Config, page *browser.Page, crumbs Breadcrumbs, transport writers.Transport, opts ...Option) *Assembler {
	a := &Assembler{
		cfg:       cfg,
		page:      page,
		crumbs:    crumbs,
		transport: transport,
		env:       SnapshotEnvironment(page),
		clock:     clock.New(),
		guid:      NewGUID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleStackInfo filters and shapes info and sends the resulting report.
// It returns the report handed to the transport, or nil when the exception
// was ignored or duplicated the last report.
func (a *Assembler) HandleStackInfo(info *stack.StackInfo) *Report {
	if info == nil {
		return nil
	}

	frames := a.prepareFrames(info)
	a.emit(Event{Type: EventHandle, StackInfo: info})

	if a.cfg.IgnoresError(info.Message) {
		a.metrics.ReportDropped(telemetry.ReasonIgnoredError)
		return nil
	}

	url := info.URL
	trace := StackTrace{Frames: []Frame{}}
	if len(frames) > 0 {
		if frames[0].Source != "" {
			url = frames[0].Source
		}
		reverse(frames)
		trace.Frames = frames
	} else if url != "" {
		trace.Frames = []Frame{{Source: url, Line: info.Line}}
	}

	if a.cfg.IgnoresURL(url) {
		a.metrics.ReportDropped(telemetry.ReasonIgnoredURL)
		return nil
	}

	return a.HandlePayload(&CatchedException{
		Type:       info.Type,
		Message:    info.Message,
		Stacktrace: trace,
	})
}

// prepareFrames converts the innermost frames, at most maxStackDepth of
// them, skipping frames with neither function nor line.
func (a *Assembler) prepareFrames(info *stack.StackInfo) []Frame {
	frames := make([]Frame, 0, len(info.Frames))
	for _, f := range info.Frames {
		if f.Function == "" && f.Line == nil {
			continue
		}
		frames = append(frames, Frame{
			Source:   f.URL,
			Line:     f.Line,
			Column:   f.Column,
			Function: f.Function,
		})
	}
	if depth := a.cfg.MaxStackDepth(); len(frames) > depth {
		frames = frames[:depth]
	}
	return frames
}

// HandlePayload wraps exception into a report and sends it unless it
// repeats the last one.
func (a *Assembler) HandlePayload(exception *CatchedException) *Report {
	r := &Report{
		URL:         a.page.Href(),
		Environment: a.env,
		Exception:   exception,
		Version:     a.cfg.Version(),
		APIKey:      a.cfg.APIKey(),
		Timestamp:   a.clock.Now().UnixMilli(),
		GUID:        a.guid(),
		Breadcrumbs: []breadcrumbs.Crumb{},
	}
	if a.page != nil && a.page.Document != nil {
		r.Title = a.page.Document.Title()
	}
	if a.crumbs != nil {
		r.Breadcrumbs = a.crumbs.Snapshot()
	}

	if !a.sendPayload(r) {
		return nil
	}
	return r
}

func (a *Assembler) sendPayload(r *Report) bool {
	a.mu.Lock()
	a.lastGUID = r.GUID
	if !a.cfg.RepeatReport() && IsRepeatReport(a.lastReport, r) {
		a.mu.Unlock()
		a.metrics.ReportDropped(telemetry.ReasonDuplicate)
		return false
	}
	a.lastReport = r
	a.mu.Unlock()

	url := a.cfg.ExceptionURL()
	a.metrics.PayloadSent(telemetry.KindException)
	a.transport.MakeRequest(writers.Request{
		URL:  url,
		Data: r,
		OnSuccess: func() {
			a.emit(Event{Type: EventSuccess, Report: r, URL: url})
		},
		OnError: func(err error) {
			a.metrics.TransportFailed(telemetry.KindException)
			a.emit(Event{Type: EventFailure, Report: r, URL: url, Err: err})
		},
	})
	return true
}

// LastGUID returns the id of the last assembled report, sent or not.
func (a *Assembler) LastGUID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastGUID
}

// LastReport returns the last report handed to the transport.
func (a *Assembler) LastReport() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport
}

func (a *Assembler) emit(e Event) {
	if a.events != nil {
		a.events(e)
	}
}

// IsRepeatReport reports whether current repeats last: same url and the
// same exception, or no exception on either side.
func IsRepeatReport(last, current *Report) bool {
	if last == nil || current == nil || current.URL != last.URL {
		return false
	}
	if current.Exception != nil || last.Exception != nil {
		return IsSameException(current.Exception, last.Exception)
	}
	return true
}

func IsSameException(a, b *CatchedException) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Type != b.Type || a.Message != b.Message {
		return false
	}
	return IsSameStacktrace(a.Stacktrace.Frames, b.Stacktrace.Frames)
}

// IsSameStacktrace compares every frame. Lists of different length differ.
func IsSameStacktrace(a, b []Frame) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Source != b[i].Source ||
			a[i].Function != b[i].Function ||
			!sameInt(a[i].Line, b[i].Line) ||
			!sameInt(a[i].Column, b[i].Column) {
			return false
		}
	}
	return true
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func reverse(frames []Frame) {
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
}

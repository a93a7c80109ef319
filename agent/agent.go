// Package agent wires the tracer together for one page: the global error
// handler, breadcrumb sources, report assembly and the unload performance
// payload.
package agent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/lognitor/go-tracer/breadcrumbs"
	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/intercept"
	"github.com/lognitor/go-tracer/logger"
	"github.com/lognitor/go-tracer/performance"
	"github.com/lognitor/go-tracer/report"
	"github.com/lognitor/go-tracer/stack"
	"github.com/lognitor/go-tracer/telemetry"
	"github.com/lognitor/go-tracer/writers"
)

// captureDepth is the number of agent frames between Analyze and the
// caller of CaptureException.
const captureDepth = 2

// Agent is the tracer of one page.
type Agent struct {
	cfg     *configs.Config
	page    *browser.Page
	log     *logger.Logger
	metrics *telemetry.Metrics

	analyzer  *stack.Analyzer
	recorder  *breadcrumbs.Recorder
	assembler *report.Assembler
	perf      *performance.Collector

	startOnce sync.Once
}

type settings struct {
	log       *logger.Logger
	transport writers.Transport
	clock     clock.Clock
	metrics   *telemetry.Metrics
	events    report.EventHandler
}

// Option configures an Agent.
type Option func(s *settings)

// WithLogger replaces the default stdout logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithTransport replaces the page transport for exception reports and as
// the performance fallback.
func WithTransport(t writers.Transport) Option {
	return func(s *settings) { s.transport = t }
}

func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithEvents receives the report lifecycle events.
func WithEvents(fn report.EventHandler) Option {
	return func(s *settings) { s.events = fn }
}

// New decodes raw over the default options and creates an agent for page.
// Unknown option keys are logged and otherwise ignored.
func New(page *browser.Page, raw map[string]any, opts ...Option) (*Agent, error) {
	cfg, unused, err := configs.FromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to configure tracer: %w", err)
	}

	a := NewWithConfig(page, cfg, opts...)
	for _, key := range unused {
		a.log.Warnf("unknown option %q ignored", key)
	}
	return a, nil
}

// NewWithConfig creates an agent from a normalized config. Nothing is
// installed on the page before Start.
func NewWithConfig(page *browser.Page, cfg *configs.Config, opts ...Option) *Agent {
	s := settings{clock: clock.New()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.NewStdout("tracer")
		s.log.SetLevel(logger.DEBUG)
	}
	if s.metrics == nil {
		s.metrics = telemetry.New()
	}
	if s.transport == nil {
		s.transport = writers.NewBrowserTransport(page)
	}

	a := &Agent{
		cfg:     cfg,
		page:    page,
		log:     s.log,
		metrics: s.metrics,
	}
	a.analyzer = stack.NewAnalyzer(page.Href, s.log)
	a.recorder = breadcrumbs.NewRecorder(cfg.MaxBreadcrumbs(),
		breadcrumbs.WithClock(s.clock),
		breadcrumbs.WithMetrics(s.metrics),
	)
	a.assembler = report.NewAssembler(cfg, page, a.recorder, s.transport,
		report.WithClock(s.clock),
		report.WithMetrics(s.metrics),
		report.WithEvents(s.events),
	)
	a.perf = performance.NewCollector(cfg, page, s.transport,
		performance.WithMetrics(s.metrics),
	)
	return a
}

// Start installs the error handler, the breadcrumb sources and the unload
// listener. Calling it again does nothing, and members another agent
// already patched on the same page are not wrapped twice.
func (a *Agent) Start() {
	a.startOnce.Do(func() {
		if a.page == nil {
			return
		}

		a.recorder.Install(a.page, a.cfg.AutoBreadcrumbs())

		intercept.Install(a.page.Interceptors, "window", "onerror", a.page.OnError, func(original browser.ErrorHandler) browser.ErrorHandler {
			return func(message, source string, line, col int, err *stack.Error) bool {
				a.handleWindowError(message, source, line, col, err)
				if original != nil {
					original(message, source, line, col, err)
				}
				return false
			}
		})

		if a.page.Window != nil {
			a.page.Window.AddEventListener("beforeunload", func(browser.Event) {
				a.perf.Dispatch()
			}, false)
		}
	})
}

// Stop does nothing: installed hooks live as long as the page.
func (a *Agent) Stop() {}

// CaptureException reports v. Errors go through stack analysis, anything
// else is reported as a message.
func (a *Agent) CaptureException(v any) {
	var captured error
	switch err := v.(type) {
	case nil:
		return
	case error:
		captured = err
	default:
		a.captureMessage(fmt.Sprint(v), captureDepth)
		return
	}

	// A hook or transport rethrowing the error it was handed must not escape
	// the capture. Any other panic is a bug and keeps unwinding.
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.Is(err, captured) {
				return
			}
			panic(r)
		}
	}()

	a.capture(asStackError(captured), captureDepth)
}

// CaptureMessage reports text with the stack of the caller.
func (a *Agent) CaptureMessage(text string) {
	a.captureMessage(text, captureDepth)
}

func (a *Agent) captureMessage(text string, depth int) {
	a.capture(&stack.Error{Message: text}, depth+1)
}

func (a *Agent) capture(e *stack.Error, depth int) *report.Report {
	info := a.analyzer.Analyze(e, depth)
	a.analyzed(info)
	return a.assembler.HandleStackInfo(info)
}

func (a *Agent) handleWindowError(message, source string, line, col int, err *stack.Error) {
	var info *stack.StackInfo
	if err != nil {
		info = a.analyzer.Analyze(err, 0)
	} else {
		info = a.analyzer.FromGlobalError(message, source, line, col)
	}
	a.analyzed(info)
	a.assembler.HandleStackInfo(info)
}

func (a *Agent) analyzed(info *stack.StackInfo) {
	switch {
	case info.Incomplete:
		a.metrics.StackAnalyzed("incomplete")
	case info.Partial:
		a.metrics.StackAnalyzed("partial")
	default:
		a.metrics.StackAnalyzed("complete")
	}

	if !a.cfg.DisableLog() {
		a.log.Debug(info)
	}
}

// asStackError keeps page errors as they are and turns Go errors into an
// Error without a stack string, so the Go call stack is used.
func asStackError(err error) *stack.Error {
	var se *stack.Error
	if errors.As(err, &se) {
		return se
	}
	return &stack.Error{Name: "Error", Message: err.Error()}
}

// Config returns the normalized configuration.
func (a *Agent) Config() *configs.Config {
	return a.cfg
}

// Breadcrumbs returns the recorded breadcrumbs oldest first.
func (a *Agent) Breadcrumbs() []breadcrumbs.Crumb {
	return a.recorder.Snapshot()
}

// LastReport returns the last report handed to the transport.
func (a *Agent) LastReport() *report.Report {
	return a.assembler.LastReport()
}

func (a *Agent) Metrics() *telemetry.Metrics {
	return a.metrics
}

// Performance returns the performance collector.
func (a *Agent) Performance() *performance.Collector {
	return a.perf
}

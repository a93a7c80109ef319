package report

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lognitor/go-tracer/breadcrumbs"
	"github.com/lognitor/go-tracer/browser/browsertest"
	"github.com/lognitor/go-tracer/configs"
	"github.com/lognitor/go-tracer/stack"
	"github.com/lognitor/go-tracer/telemetry"
	"github.com/lognitor/go-tracer/writers"
)

type recordingTransport struct {
	requests []writers.Request
	err      error
}

func (t *recordingTransport) MakeRequest(req writers.Request) {
	t.requests = append(t.requests, req)
	if t.err != nil {
		req.OnError(t.err)
		return
	}
	req.OnSuccess()
}

type fixture struct {
	browser   *browsertest.Browser
	transport *recordingTransport
	metrics   *telemetry.Metrics
	clock     *clock.Mock
	crumbs    *breadcrumbs.Recorder
	events    []Event
	assembler *Assembler
}

func newFixture(t *testing.T, raw map[string]any) *fixture {
	t.Helper()

	cfg, _, err := configs.FromMap(raw)
	require.NoError(t, err)

	f := &fixture{
		browser:   browsertest.New(browsertest.WithHref("http://shop.test/cart"), browsertest.WithTitle("Cart")),
		transport: &recordingTransport{},
		metrics:   telemetry.New(),
		clock:     clock.NewMock(),
	}
	f.clock.Add(time.Hour)
	f.crumbs = breadcrumbs.NewRecorder(cfg.MaxBreadcrumbs(), breadcrumbs.WithClock(f.clock))

	n := 0
	f.assembler = NewAssembler(cfg, f.browser.Page, f.crumbs, f.transport,
		WithClock(f.clock),
		WithMetrics(f.metrics),
		WithEvents(func(e Event) { f.events = append(f.events, e) }),
		WithGUID(func() string {
			n++
			return fmt.Sprintf("guid-%d", n)
		}),
	)
	return f
}

func frame(url, function string, line, column int) stack.Frame {
	return stack.Frame{URL: url, Function: function, Line: &line, Column: &column}
}

func boom() *stack.StackInfo {
	return &stack.StackInfo{
		Type:    "Error",
		Message: "boom",
		URL:     "http://shop.test/cart",
		Frames: []stack.Frame{
			frame("http://shop.test/app.js", "throwIt", 10, 5),
			frame("http://shop.test/app.js", "onClick", 20, 3),
		},
	}
}

func TestHandleStackInfoBuildsReport(t *testing.T) {
	f := newFixture(t, map[string]any{"apiKey": "key", "version": "1.2.3"})
	f.crumbs.Capture(breadcrumbs.Crumb{Category: breadcrumbs.CategoryConsole, Message: "before"})

	r := f.assembler.HandleStackInfo(boom())
	require.NotNil(t, r)

	assert.Equal(t, "http://shop.test/cart", r.URL)
	assert.Equal(t, "Cart", r.Title)
	assert.Equal(t, Environment{ScreenWidth: 1280, ScreenHeight: 720, UserAgent: "Mozilla/5.0 (browsertest)", Language: "en-US"}, r.Environment)
	assert.Equal(t, "1.2.3", r.Version)
	assert.Equal(t, "key", r.APIKey)
	assert.Equal(t, f.clock.Now().UnixMilli(), r.Timestamp)
	assert.Equal(t, "guid-1", r.GUID)
	require.Len(t, r.Breadcrumbs, 1)
	assert.Equal(t, "before", r.Breadcrumbs[0].Message)

	require.NotNil(t, r.Exception)
	assert.Equal(t, "Error", r.Exception.Type)
	assert.Equal(t, "boom", r.Exception.Message)
	frames := r.Exception.Stacktrace.Frames
	require.Len(t, frames, 2)
	assert.Equal(t, "onClick", frames[0].Function)
	assert.Equal(t, "throwIt", frames[1].Function)

	require.Len(t, f.transport.requests, 1)
	assert.Equal(t, configs.DefaultExceptionURL, f.transport.requests[0].URL)
	assert.Same(t, r, f.transport.requests[0].Data)
	assert.Equal(t, 1.0, f.metrics.Counter("payloads_sent", telemetry.KindException))
}

func TestReportJSON(t *testing.T) {
	f := newFixture(t, nil)
	r := f.assembler.HandleStackInfo(boom())
	require.NotNil(t, r)

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Contains(t, got["environment"], "screenHeigth")
	exception := got["exception"].(map[string]any)
	frames := exception["stacktrace"].(map[string]any)["frames"].([]any)
	assert.Equal(t, map[string]any{
		"source":   "http://shop.test/app.js",
		"lineno":   20.0,
		"colno":    3.0,
		"function": "onClick",
	}, frames[0])
	assert.Equal(t, []any{}, got["breadcrumbs"])
}

func TestScriptErrorIsIgnored(t *testing.T) {
	f := newFixture(t, map[string]any{"ignoreErrors": []any{`^Script error\.?$`}})

	for _, message := range []string{"Script error.", "Script error", "Javascript error: Script error. on line 0"} {
		assert.Nil(t, f.assembler.HandleStackInfo(&stack.StackInfo{Message: message, URL: "http://shop.test/cart"}))
	}

	assert.Empty(t, f.transport.requests)
	assert.Equal(t, 3.0, f.metrics.Counter("reports_dropped", telemetry.ReasonIgnoredError))
	assert.Empty(t, f.assembler.LastGUID())
}

func TestIgnoreURLUsesInnermostFrame(t *testing.T) {
	f := newFixture(t, map[string]any{"ignoreUrls": []string{"shop.test/app.js"}})

	assert.Nil(t, f.assembler.HandleStackInfo(boom()))
	assert.Equal(t, 1.0, f.metrics.Counter("reports_dropped", telemetry.ReasonIgnoredURL))

	info := boom()
	info.Frames = nil
	assert.NotNil(t, f.assembler.HandleStackInfo(info), "origin url is not ignored")
}

func TestMaxStackDepthKeepsOutermostFirst(t *testing.T) {
	f := newFixture(t, map[string]any{"maxStackDepth": 3})

	info := &stack.StackInfo{Message: "deep"}
	for i := 0; i < 10; i++ {
		info.Frames = append(info.Frames, frame("http://shop.test/app.js", fmt.Sprintf("f%d", i), i+1, 1))
	}

	r := f.assembler.HandleStackInfo(info)
	require.NotNil(t, r)

	frames := r.Exception.Stacktrace.Frames
	require.Len(t, frames, 3)
	assert.Equal(t, "f2", frames[0].Function)
	assert.Equal(t, "f1", frames[1].Function)
	assert.Equal(t, "f0", frames[2].Function)
}

func TestFramesWithoutFunctionOrLineAreDropped(t *testing.T) {
	f := newFixture(t, nil)

	info := boom()
	info.Frames = append([]stack.Frame{{URL: "http://shop.test/native.js"}}, info.Frames...)

	r := f.assembler.HandleStackInfo(info)
	require.NotNil(t, r)
	assert.Len(t, r.Exception.Stacktrace.Frames, 2)
}

func TestOriginURLFrameWithoutFrames(t *testing.T) {
	f := newFixture(t, nil)

	r := f.assembler.HandleStackInfo(&stack.StackInfo{Message: "lost", URL: "http://shop.test/lib.js"})
	require.NotNil(t, r)
	assert.Equal(t, []Frame{{Source: "http://shop.test/lib.js"}}, r.Exception.Stacktrace.Frames)

	r = f.assembler.HandleStackInfo(&stack.StackInfo{Message: "nowhere"})
	require.NotNil(t, r)
	assert.Empty(t, r.Exception.Stacktrace.Frames)
}

func TestOriginURLFrameKeepsLine(t *testing.T) {
	f := newFixture(t, map[string]any{"maxStackDepth": 0})

	line := 12
	r := f.assembler.HandleStackInfo(&stack.StackInfo{
		Message: "cut",
		URL:     "http://shop.test/cart",
		Line:    &line,
		Frames:  []stack.Frame{frame("http://shop.test/app.js", "render", 12, 3)},
	})
	require.NotNil(t, r)
	assert.Equal(t, []Frame{{Source: "http://shop.test/cart", Line: &line}}, r.Exception.Stacktrace.Frames)
}

func TestDuplicateReportIsSuppressed(t *testing.T) {
	f := newFixture(t, nil)

	require.NotNil(t, f.assembler.HandleStackInfo(boom()))
	assert.Nil(t, f.assembler.HandleStackInfo(boom()))

	assert.Len(t, f.transport.requests, 1)
	assert.Equal(t, "guid-2", f.assembler.LastGUID())
	assert.Equal(t, "guid-1", f.assembler.LastReport().GUID)
	assert.Equal(t, 1.0, f.metrics.Counter("reports_dropped", telemetry.ReasonDuplicate))

	other := boom()
	other.Message = "bang"
	assert.NotNil(t, f.assembler.HandleStackInfo(other))

	f.browser.PushState("/checkout")
	assert.NotNil(t, f.assembler.HandleStackInfo(other), "url changed")
}

func TestRepeatReportBypassesDeduplication(t *testing.T) {
	f := newFixture(t, map[string]any{"repeatReport": true})

	require.NotNil(t, f.assembler.HandleStackInfo(boom()))
	require.NotNil(t, f.assembler.HandleStackInfo(boom()))
	assert.Len(t, f.transport.requests, 2)
}

func TestEvents(t *testing.T) {
	f := newFixture(t, nil)
	info := boom()

	r := f.assembler.HandleStackInfo(info)
	require.Len(t, f.events, 2)
	assert.Equal(t, Event{Type: EventHandle, StackInfo: info}, f.events[0])
	assert.Equal(t, Event{Type: EventSuccess, Report: r, URL: configs.DefaultExceptionURL}, f.events[1])

	f.transport.err = errors.New("offline")
	info.Message = "again"
	r = f.assembler.HandleStackInfo(info)
	require.Len(t, f.events, 4)
	assert.Equal(t, EventFailure, f.events[3].Type)
	assert.Same(t, r, f.events[3].Report)
	assert.EqualError(t, f.events[3].Err, "offline")
	assert.Equal(t, 1.0, f.metrics.Counter("transport_failures", telemetry.KindException))
}

func intp(v int) *int { return &v }

func sampleException() *CatchedException {
	return &CatchedException{
		Type:    "TypeError",
		Message: "x is undefined",
		Stacktrace: StackTrace{Frames: []Frame{
			{Source: "http://a/app.js", Line: intp(1), Column: intp(2), Function: "outer"},
			{Source: "http://a/app.js", Line: intp(3), Column: intp(4), Function: "inner"},
		}},
	}
}

func TestIsSameException(t *testing.T) {
	assert.True(t, IsSameException(sampleException(), sampleException()))
	assert.False(t, IsSameException(sampleException(), nil))
	assert.False(t, IsSameException(nil, nil))

	changes := map[string]func(e *CatchedException){
		"type":     func(e *CatchedException) { e.Type = "RangeError" },
		"message":  func(e *CatchedException) { e.Message = "y is undefined" },
		"source":   func(e *CatchedException) { e.Stacktrace.Frames[1].Source = "http://b/app.js" },
		"line":     func(e *CatchedException) { e.Stacktrace.Frames[1].Line = intp(30) },
		"no line":  func(e *CatchedException) { e.Stacktrace.Frames[0].Line = nil },
		"column":   func(e *CatchedException) { e.Stacktrace.Frames[0].Column = intp(5) },
		"function": func(e *CatchedException) { e.Stacktrace.Frames[0].Function = "?" },
		"length":   func(e *CatchedException) { e.Stacktrace.Frames = e.Stacktrace.Frames[:1] },
	}
	for name, change := range changes {
		t.Run(name, func(t *testing.T) {
			changed := sampleException()
			change(changed)
			assert.False(t, IsSameException(sampleException(), changed))
			assert.False(t, IsSameException(changed, sampleException()))
		})
	}
}

func TestIsRepeatReport(t *testing.T) {
	last := &Report{URL: "http://a/"}
	assert.False(t, IsRepeatReport(nil, last))
	assert.False(t, IsRepeatReport(last, &Report{URL: "http://b/"}))
	assert.True(t, IsRepeatReport(last, &Report{URL: "http://a/"}))
	assert.False(t, IsRepeatReport(last, &Report{URL: "http://a/", Exception: sampleException()}))

	last.Exception = sampleException()
	assert.True(t, IsRepeatReport(last, &Report{URL: "http://a/", Exception: sampleException()}))
}

var guidLayout = regexp.MustCompile(`^[0-9a-f]{12}4[0-9a-f]{3}[89ab][0-9a-f]{15}$`)

func TestNewGUID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewGUID()
		assert.Regexp(t, guidLayout, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestPseudoRandomGUIDLayout(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := pseudoRandomUUID()
		assert.Regexp(t, guidLayout, fmt.Sprintf("%x", id[:]))
	}
}

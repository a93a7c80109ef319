// Package browsertest is an in-memory browser page. It drives the same hooks
// a real page would: DOM events, XHR ready states, history navigation,
// console calls, window.onerror and unload.
package browsertest

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/intercept"
	"github.com/lognitor/go-tracer/stack"
)

// Request is a request that reached the network.
type Request struct {
	Method  string
	URL     string
	Body    []byte
	Headers map[string]string
	// XDomain is set for XDomainRequest sends.
	XDomain bool
}

// Beacon is a navigator.sendBeacon call.
type Beacon struct {
	URL  string
	Data []byte
}

// Browser owns one fake page.
type Browser struct {
	Page *browser.Page

	mu       sync.Mutex
	href     string
	title    string
	width    int
	height   int
	ua       string
	language string

	beacon   bool
	xdomain  bool
	noCORS   bool
	status   int
	autoResp bool

	document *eventTarget
	window   *eventTarget
	perf     *Performance

	requests []Request
	beacons  []Beacon
	console  []string
	opens    int
	sends    int
}

// Option configures a Browser.
type Option func(b *Browser)

// WithHref sets the initial location.
func WithHref(href string) Option {
	return func(b *Browser) { b.href = href }
}

// WithTitle sets document.title.
func WithTitle(title string) Option {
	return func(b *Browser) { b.title = title }
}

// WithScreen sets the document client size.
func WithScreen(width, height int) Option {
	return func(b *Browser) {
		b.width = width
		b.height = height
	}
}

// WithUserAgent sets navigator.userAgent and navigator.language.
func WithUserAgent(ua, language string) Option {
	return func(b *Browser) {
		b.ua = ua
		b.language = language
	}
}

// WithBeacon gives the navigator a sendBeacon method.
func WithBeacon() Option {
	return func(b *Browser) { b.beacon = true }
}

// WithoutCORS makes XHR objects lack withCredentials. Combined with
// WithXDomainRequest it models old Internet Explorer.
func WithoutCORS() Option {
	return func(b *Browser) { b.noCORS = true }
}

// WithXDomainRequest makes window.XDomainRequest available.
func WithXDomainRequest() Option {
	return func(b *Browser) { b.xdomain = true }
}

// WithAutoRespond completes every sent XHR with status right away.
func WithAutoRespond(status int) Option {
	return func(b *Browser) {
		b.autoResp = true
		b.status = status
	}
}

// WithPerformance installs window.performance.
func WithPerformance(p *Performance) Option {
	return func(b *Browser) { b.perf = p }
}

// WithoutHistory removes history.pushState.
func WithoutHistory() Option {
	return func(b *Browser) { b.Page.History = nil }
}

// WithoutConsole removes window.console.
func WithoutConsole() Option {
	return func(b *Browser) { b.Page.Console = nil }
}

// New creates a page at http://localhost/ unless WithHref says otherwise.
func New(opts ...Option) *Browser {
	b := &Browser{
		href:     "http://localhost/",
		title:    "",
		width:    1280,
		height:   720,
		ua:       "Mozilla/5.0 (browsertest)",
		language: "en-US",
		document: newEventTarget(),
		window:   newEventTarget(),
	}

	b.Page = &browser.Page{
		Window:   b.window,
		Document: &document{b: b, eventTarget: b.document},
		Location: location{b: b},
		Requests: requests{b: b},
		XHR: &browser.XHRPrototype{
			Open: intercept.NewSlot[browser.OpenFunc](b.nativeOpen),
			Send: intercept.NewSlot[browser.SendFunc](b.nativeSend),
		},
		History: &browser.History{
			PushState: intercept.NewSlot[browser.PushStateFunc](b.nativePushState),
		},
		Console:      &browser.Console{Methods: map[string]*intercept.Slot[browser.ConsoleFunc]{}},
		OnError:      intercept.NewSlot[browser.ErrorHandler](nil),
		OnPopState:   intercept.NewSlot[func()](nil),
		Interceptors: intercept.NewRegistry(),
	}
	for _, level := range browser.ConsoleLevels {
		b.Page.Console.Methods[level] = intercept.NewSlot[browser.ConsoleFunc](b.nativeConsole(level))
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.beacon {
		b.Page.Navigator = beaconNavigator{navigator{b: b}}
	} else {
		b.Page.Navigator = navigator{b: b}
	}
	if b.perf != nil {
		b.Page.Performance = b.perf
	}
	return b
}

// Click dispatches a click on el.
func (b *Browser) Click(el browser.Element) {
	b.document.dispatch(browser.Event{Type: "click", Target: el})
}

// Blur dispatches a blur on el.
func (b *Browser) Blur(el browser.Element) {
	b.document.dispatch(browser.Event{Type: "blur", Target: el})
}

// Unload dispatches beforeunload on the window.
func (b *Browser) Unload() {
	b.window.dispatch(browser.Event{Type: "beforeunload"})
}

// Fetch opens and sends an XHR the way page code would.
func (b *Browser) Fetch(method, rawURL string, body []byte) *XHR {
	x := b.newXHR()
	x.Open(method, rawURL)
	x.Send(body)
	return x
}

// Respond completes x with status.
func (b *Browser) Respond(x *XHR, status int) {
	x.status = status
	x.setReadyState(browser.Done)
}

// PushState calls history.pushState through its current implementation.
func (b *Browser) PushState(rawURL string) {
	if b.Page.History == nil {
		return
	}
	b.Page.History.PushState.Get()(nil, "", rawURL)
}

// PopState moves the location to href and fires window.onpopstate.
func (b *Browser) PopState(href string) {
	b.setHref(href)
	if fn := b.Page.OnPopState.Get(); fn != nil {
		fn()
	}
}

// Log calls console[level] through its current implementation.
func (b *Browser) Log(level string, args ...any) {
	if b.Page.Console == nil {
		return
	}
	b.Page.Console.Call(level, args...)
}

// RaiseError fires window.onerror like an uncaught error would.
func (b *Browser) RaiseError(message, source string, line, col int, err *stack.Error) bool {
	if fn := b.Page.OnError.Get(); fn != nil {
		return fn(message, source, line, col, err)
	}
	return false
}

// Requests returns every request that reached the network.
func (b *Browser) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Beacons returns every sendBeacon call.
func (b *Browser) Beacons() []Beacon {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Beacon, len(b.beacons))
	copy(out, b.beacons)
	return out
}

// ConsoleOutput returns what reached the native console, one "level: text"
// line per call.
func (b *Browser) ConsoleOutput() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.console))
	copy(out, b.console)
	return out
}

// NativeCalls returns how many times the native XHR open and send ran.
func (b *Browser) NativeCalls() (opens, sends int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens, b.sends
}

// Href returns the current location.
func (b *Browser) Href() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.href
}

func (b *Browser) setHref(href string) {
	b.mu.Lock()
	b.href = href
	b.mu.Unlock()
}

func (b *Browser) newXHR() *XHR {
	return &XHR{
		b:       b,
		values:  map[string]any{},
		headers: map[string]string{},
		cors:    !b.noCORS,
	}
}

func (b *Browser) nativeOpen(x browser.XHR, method, rawURL string) {
	b.mu.Lock()
	b.opens++
	b.mu.Unlock()

	if fx, ok := x.(*XHR); ok {
		fx.method = method
		fx.url = rawURL
		fx.setReadyState(browser.Opened)
	}
}

func (b *Browser) nativeSend(x browser.XHR, body []byte) {
	fx, ok := x.(*XHR)
	if !ok {
		return
	}

	b.mu.Lock()
	b.sends++
	b.requests = append(b.requests, Request{
		Method:  fx.method,
		URL:     fx.url,
		Body:    body,
		Headers: fx.headers,
	})
	autoResp, status := b.autoResp, b.status
	b.mu.Unlock()

	if autoResp {
		b.Respond(fx, status)
	}
}

func (b *Browser) nativePushState(_ any, _ string, rawURL string) {
	if rawURL == "" {
		return
	}
	b.setHref(resolve(b.Href(), rawURL))
}

func (b *Browser) nativeConsole(level string) browser.ConsoleFunc {
	return func(args ...any) {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = fmt.Sprint(arg)
		}
		b.mu.Lock()
		b.console = append(b.console, level+": "+strings.Join(parts, " "))
		b.mu.Unlock()
	}
}

func resolve(base, ref string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}

type listener struct {
	fn      browser.Listener
	capture bool
}

type eventTarget struct {
	mu        sync.Mutex
	listeners map[string][]listener
}

func newEventTarget() *eventTarget {
	return &eventTarget{listeners: map[string][]listener{}}
}

func (t *eventTarget) AddEventListener(event string, fn browser.Listener, capture bool) {
	t.mu.Lock()
	t.listeners[event] = append(t.listeners[event], listener{fn: fn, capture: capture})
	t.mu.Unlock()
}

// dispatch runs capture listeners before bubble listeners.
func (t *eventTarget) dispatch(e browser.Event) {
	t.mu.Lock()
	ls := append([]listener(nil), t.listeners[e.Type]...)
	t.mu.Unlock()

	for _, l := range ls {
		if l.capture {
			l.fn(e)
		}
	}
	for _, l := range ls {
		if !l.capture {
			l.fn(e)
		}
	}
}

type document struct {
	*eventTarget
	b *Browser
}

func (d *document) Title() string     { return d.b.title }
func (d *document) ClientWidth() int  { return d.b.width }
func (d *document) ClientHeight() int { return d.b.height }

type location struct {
	b *Browser
}

func (l location) Href() string { return l.b.Href() }

type navigator struct {
	b *Browser
}

func (n navigator) UserAgent() string { return n.b.ua }
func (n navigator) Language() string  { return n.b.language }

type beaconNavigator struct {
	navigator
}

func (n beaconNavigator) SendBeacon(rawURL string, data []byte) bool {
	n.b.mu.Lock()
	n.b.beacons = append(n.b.beacons, Beacon{URL: rawURL, Data: data})
	n.b.mu.Unlock()
	return true
}

type requests struct {
	b *Browser
}

func (r requests) NewXHR() browser.XHR {
	return r.b.newXHR()
}

func (r requests) NewXDomainRequest() (browser.XDomainRequest, bool) {
	if !r.b.xdomain {
		return nil, false
	}
	return &XDomainRequest{b: r.b}, true
}

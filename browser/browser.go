// Package browser describes the parts of a web page the tracer reads and
// patches. A binding (browser/jsbind in WebAssembly, browser/browsertest in
// tests) fills a Page; every patchable member is an intercept.Slot.
package browser

import (
	"github.com/lognitor/go-tracer/intercept"
	"github.com/lognitor/go-tracer/stack"
)

// Element is a DOM element.
type Element interface {
	TagName() string
	ID() string
	ClassName() string
	// Attribute returns "" for missing attributes.
	Attribute(name string) string
	// Parent returns nil at the document root.
	Parent() Element
}

// Event is a dispatched DOM event.
type Event struct {
	Type   string
	Target Element
}

type Listener func(e Event)

// EventTarget is the window or the document.
type EventTarget interface {
	AddEventListener(event string, listener Listener, capture bool)
}

// Document is window.document.
type Document interface {
	EventTarget
	Title() string
	// ClientWidth and ClientHeight come from documentElement, or body when
	// there is none.
	ClientWidth() int
	ClientHeight() int
}

// Location is window.location.
type Location interface {
	Href() string
}

// Navigator is window.navigator.
type Navigator interface {
	UserAgent() string
	Language() string
}

// Beaconer is a navigator with sendBeacon.
type Beaconer interface {
	SendBeacon(url string, data []byte) bool
}

// XHR is one XMLHttpRequest instance. Open and Send go through the
// prototype slots so interceptions see every request.
type XHR interface {
	Open(method, url string)
	Send(body []byte)
	SetRequestHeader(name, value string)

	ReadyState() int
	Status() int

	OnReadyStateChange() func()
	SetOnReadyStateChange(fn func())

	// Value and SetValue store per-request data owned by interceptions.
	Value(key string) any
	SetValue(key string, v any)

	// WithCredentials reports whether the object supports CORS requests.
	WithCredentials() bool
}

// Ready states of an XHR.
const (
	Unsent = iota
	Opened
	HeadersReceived
	Loading
	Done
)

type (
	OpenFunc func(x XHR, method, url string)
	SendFunc func(x XHR, body []byte)
)

// XHRPrototype holds the patchable methods of XMLHttpRequest.prototype.
type XHRPrototype struct {
	Open *intercept.Slot[OpenFunc]
	Send *intercept.Slot[SendFunc]
}

// XDomainRequest is the legacy cross-domain request object.
type XDomainRequest interface {
	Open(method, url string)
	Send(body []byte)
	SetOnLoad(fn func())
	SetOnError(fn func())
}

// Requests creates request objects.
type Requests interface {
	NewXHR() XHR
	// NewXDomainRequest reports false when the page has no XDomainRequest.
	NewXDomainRequest() (XDomainRequest, bool)
}

type PushStateFunc func(state any, title, url string)

// History is window.history.
type History struct {
	PushState *intercept.Slot[PushStateFunc]
}

type ConsoleFunc func(args ...any)

// Console levels wrapped by the tracer.
var ConsoleLevels = []string{"debug", "info", "warn", "error", "log"}

// Console is window.console. Missing levels have no slot.
type Console struct {
	Methods map[string]*intercept.Slot[ConsoleFunc]
}

// Call invokes the current implementation of level.
func (c *Console) Call(level string, args ...any) {
	slot, ok := c.Methods[level]
	if !ok {
		return
	}
	if fn := slot.Get(); fn != nil {
		fn(args...)
	}
}

// ErrorHandler is the window.onerror signature. err is nil when the engine
// reports strings only. Returning true suppresses the default handling.
type ErrorHandler func(message, source string, line, col int, err *stack.Error) bool

// Page is everything the tracer touches on one page. Optional members are
// nil when the page lacks them.
type Page struct {
	Window      EventTarget
	Document    Document
	Location    Location
	Navigator   Navigator
	Performance Performance
	Requests    Requests

	XHR     *XHRPrototype
	History *History
	Console *Console

	OnError    *intercept.Slot[ErrorHandler]
	OnPopState *intercept.Slot[func()]

	// Interceptors records every patched member of this page.
	Interceptors *intercept.Registry
}

// Href returns the current location or "".
func (p *Page) Href() string {
	if p == nil || p.Location == nil {
		return ""
	}
	return p.Location.Href()
}

package browsertest

import (
	"sync"

	"github.com/lognitor/go-tracer/browser"
)

// XHR is an in-memory XMLHttpRequest.
type XHR struct {
	b *Browser

	mu         sync.Mutex
	method     string
	url        string
	readyState int
	status     int
	onChange   func()
	values     map[string]any
	headers    map[string]string
	cors       bool
}

var _ browser.XHR = (*XHR)(nil)

func (x *XHR) Open(method, rawURL string) {
	x.b.Page.XHR.Open.Get()(x, method, rawURL)
}

func (x *XHR) Send(body []byte) {
	x.b.Page.XHR.Send.Get()(x, body)
}

func (x *XHR) SetRequestHeader(name, value string) {
	x.mu.Lock()
	x.headers[name] = value
	x.mu.Unlock()
}

func (x *XHR) ReadyState() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.readyState
}

func (x *XHR) Status() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.status
}

func (x *XHR) OnReadyStateChange() func() {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.onChange
}

func (x *XHR) SetOnReadyStateChange(fn func()) {
	x.mu.Lock()
	x.onChange = fn
	x.mu.Unlock()
}

func (x *XHR) Value(key string) any {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.values[key]
}

func (x *XHR) SetValue(key string, v any) {
	x.mu.Lock()
	x.values[key] = v
	x.mu.Unlock()
}

func (x *XHR) WithCredentials() bool {
	return x.cors
}

// Method and URL return what the request was opened with.
func (x *XHR) Method() string { return x.method }
func (x *XHR) URL() string    { return x.url }

func (x *XHR) setReadyState(state int) {
	x.mu.Lock()
	x.readyState = state
	fn := x.onChange
	x.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// XDomainRequest is an in-memory XDomainRequest. It always succeeds unless
// the browser auto-responds with a status other than 200.
type XDomainRequest struct {
	b *Browser

	method  string
	url     string
	onLoad  func()
	onError func()
}

func (r *XDomainRequest) Open(method, rawURL string) {
	r.method = method
	r.url = rawURL
}

func (r *XDomainRequest) Send(body []byte) {
	r.b.mu.Lock()
	r.b.requests = append(r.b.requests, Request{Method: r.method, URL: r.url, Body: body, XDomain: true})
	failed := r.b.autoResp && r.b.status != 200
	r.b.mu.Unlock()

	if failed {
		if r.onError != nil {
			r.onError()
		}
		return
	}
	if r.onLoad != nil {
		r.onLoad()
	}
}

func (r *XDomainRequest) SetOnLoad(fn func())  { r.onLoad = fn }
func (r *XDomainRequest) SetOnError(fn func()) { r.onError = fn }

// Performance is a fixed window.performance.
type Performance struct {
	NavigationTiming browser.NavigationTiming
	NavigationInfo   browser.NavigationInfo
	Entries          []browser.ResourceEntry
}

func (p *Performance) Timing() browser.NavigationTiming   { return p.NavigationTiming }
func (p *Performance) Navigation() browser.NavigationInfo { return p.NavigationInfo }
func (p *Performance) Resources() []browser.ResourceEntry { return p.Entries }

//go:build js && wasm

// Package jsbind fills a browser.Page from the JavaScript globals of the
// page the WebAssembly module runs in. Patchable members are replaced on
// the JavaScript side by functions that call the page slots, so page
// scripts see the tracer's interceptions.
package jsbind

import (
	"fmt"
	"sync"
	"syscall/js"

	"github.com/goccy/go-json"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/intercept"
	"github.com/lognitor/go-tracer/stack"
)

const xhrIDKey = "__tracerXHR"

// NewPage binds the global window. Members the page lacks stay nil.
func NewPage() *browser.Page {
	return Bind(js.Global())
}

var (
	boundMu sync.Mutex
	bound   []*binding
)

// Bind binds window. Binding the same window again returns the page of the
// first call, so members are patched once.
func Bind(window js.Value) *browser.Page {
	boundMu.Lock()
	defer boundMu.Unlock()

	if p := lookup(window); p != nil {
		return p.page
	}

	p := &binding{
		window: window,
		xhrs:   map[int]*xhr{},
	}

	page := &browser.Page{
		Window:       eventTarget{v: window},
		Location:     location{v: window.Get("location")},
		Requests:     requests{p: p},
		OnError:      intercept.NewSlot[browser.ErrorHandler](nil),
		OnPopState:   intercept.NewSlot[func()](nil),
		Interceptors: intercept.NewRegistry(),
	}
	p.page = page

	if doc := window.Get("document"); defined(doc) {
		page.Document = document{eventTarget: eventTarget{v: doc}, v: doc}
	}
	if nav := window.Get("navigator"); defined(nav) {
		if isFunc(nav.Get("sendBeacon")) {
			page.Navigator = beaconNavigator{navigator{v: nav}}
		} else {
			page.Navigator = navigator{v: nav}
		}
	}
	if perf := window.Get("performance"); defined(perf) && defined(perf.Get("timing")) {
		page.Performance = performance{v: perf}
	}

	p.bindXHR()
	p.bindHistory()
	p.bindConsole()
	p.bindOnError()
	p.bindOnPopState()

	bound = append(bound, p)
	return page
}

// lookup must be called with boundMu held.
func lookup(window js.Value) *binding {
	for _, p := range bound {
		if p.window.Equal(window) {
			return p
		}
	}
	return nil
}

type binding struct {
	window js.Value
	page   *browser.Page

	mu     sync.Mutex
	nextID int
	xhrs   map[int]*xhr

	// arguments of the handler call in progress, forwarded as they are to
	// the handlers found on the page
	errorArgs    []js.Value
	popStateArgs []js.Value
}

// wrapXHR returns the Go side of a JavaScript request object, creating it
// on first sight.
func (p *binding) wrapXHR(v js.Value) *xhr {
	p.mu.Lock()
	defer p.mu.Unlock()

	if id := v.Get(xhrIDKey); id.Type() == js.TypeNumber {
		if x, ok := p.xhrs[id.Int()]; ok {
			return x
		}
	}
	p.nextID++
	x := &xhr{v: v, p: p, id: p.nextID, values: map[string]any{}}
	p.xhrs[x.id] = x
	v.Set(xhrIDKey, x.id)
	return x
}

// forget drops the Go side of a finished request.
func (p *binding) forget(x *xhr) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.xhrs[x.id] == x {
		delete(p.xhrs, x.id)
		x.v.Delete(xhrIDKey)
	}
}

func (p *binding) bindXHR() {
	ctor := p.window.Get("XMLHttpRequest")
	if !isFunc(ctor) {
		return
	}
	proto := ctor.Get("prototype")
	nativeOpen := proto.Get("open")
	nativeSend := proto.Get("send")

	p.page.XHR = &browser.XHRPrototype{
		Open: intercept.NewSlot[browser.OpenFunc](func(bx browser.XHR, method, url string) {
			x := bx.(*xhr)
			args := x.take(&x.openArgs)
			if len(args) < 2 {
				nativeOpen.Call("call", x.v, method, url)
				return
			}
			// async and credentials go through untouched
			vals := array(args)
			if method != args[0].String() {
				vals.SetIndex(0, method)
			}
			if url != args[1].String() {
				vals.SetIndex(1, url)
			}
			nativeOpen.Call("apply", x.v, vals)
		}),
		Send: intercept.NewSlot[browser.SendFunc](func(bx browser.XHR, body []byte) {
			x := bx.(*xhr)
			if args := x.take(&x.sendArgs); args != nil {
				nativeSend.Call("apply", x.v, array(args))
				return
			}
			if body == nil {
				nativeSend.Call("call", x.v)
				return
			}
			nativeSend.Call("call", x.v, string(body))
		}),
	}

	proto.Set("open", js.FuncOf(func(this js.Value, args []js.Value) any {
		x := p.wrapXHR(this)
		x.keep(&x.openArgs, args)
		p.page.XHR.Open.Get()(x, arg(args, 0).String(), arg(args, 1).String())
		return nil
	}))
	proto.Set("send", js.FuncOf(func(this js.Value, args []js.Value) any {
		x := p.wrapXHR(this)
		x.keep(&x.sendArgs, args)
		p.page.XHR.Send.Get()(x, bodyOf(arg(args, 0)))
		if !x.hooked() {
			p.forget(x)
		}
		return nil
	}))
}

func (p *binding) bindHistory() {
	history := p.window.Get("history")
	if !defined(history) || !isFunc(history.Get("pushState")) {
		return
	}
	native := history.Get("pushState")

	p.page.History = &browser.History{
		PushState: intercept.NewSlot[browser.PushStateFunc](func(state any, title, url string) {
			if url == "" {
				native.Call("call", history, state, title)
				return
			}
			native.Call("call", history, state, title, url)
		}),
	}
	history.Set("pushState", js.FuncOf(func(_ js.Value, args []js.Value) any {
		url := ""
		if u := arg(args, 2); defined(u) {
			url = u.String()
		}
		p.page.History.PushState.Get()(arg(args, 0), stringOf(arg(args, 1)), url)
		return nil
	}))
}

func (p *binding) bindConsole() {
	console := p.window.Get("console")
	if !defined(console) {
		return
	}

	p.page.Console = &browser.Console{Methods: map[string]*intercept.Slot[browser.ConsoleFunc]{}}
	for _, level := range browser.ConsoleLevels {
		native := console.Get(level)
		if !isFunc(native) {
			continue
		}
		slot := intercept.NewSlot[browser.ConsoleFunc](func(args ...any) {
			native.Call("apply", console, jsValues(args))
		})
		p.page.Console.Methods[level] = slot
		console.Set(level, js.FuncOf(func(_ js.Value, args []js.Value) any {
			slot.Get()(goValues(args)...)
			return nil
		}))
	}
}

func (p *binding) bindOnError() {
	if prev := p.window.Get("onerror"); isFunc(prev) {
		p.page.OnError.Set(func(message, source string, line, col int, err *stack.Error) bool {
			args := p.errorArgs
			if args == nil {
				return prev.Call("call", p.window, message, source, line, col).Truthy()
			}
			return prev.Call("apply", p.window, array(args)).Truthy()
		})
	}
	p.window.Set("onerror", js.FuncOf(func(_ js.Value, args []js.Value) any {
		fn := p.page.OnError.Get()
		if fn == nil {
			return false
		}
		p.errorArgs = args
		defer func() { p.errorArgs = nil }()
		return fn(stringOf(arg(args, 0)), stringOf(arg(args, 1)), intOf(arg(args, 2)), intOf(arg(args, 3)), errorOf(arg(args, 4)))
	}))
}

func (p *binding) bindOnPopState() {
	if prev := p.window.Get("onpopstate"); isFunc(prev) {
		p.page.OnPopState.Set(func() {
			prev.Call("apply", p.window, array(p.popStateArgs))
		})
	}
	p.window.Set("onpopstate", js.FuncOf(func(_ js.Value, args []js.Value) any {
		if fn := p.page.OnPopState.Get(); fn != nil {
			p.popStateArgs = args
			defer func() { p.popStateArgs = nil }()
			fn()
		}
		return nil
	}))
}

// errorOf converts a thrown Error object.
func errorOf(v js.Value) *stack.Error {
	if v.Type() != js.TypeObject {
		return nil
	}
	e := &stack.Error{
		Name:         stringOf(v.Get("name")),
		Message:      stringOf(v.Get("message")),
		Stack:        stringOf(v.Get("stack")),
		SourceURL:    stringOf(v.Get("sourceURL")),
		FileName:     stringOf(v.Get("fileName")),
		Description:  stringOf(v.Get("description")),
		Line:         intPtrOf(v.Get("line")),
		LineNumber:   intPtrOf(v.Get("lineNumber")),
		ColumnNumber: intPtrOf(v.Get("columnNumber")),
	}
	return e
}

type eventTarget struct {
	v js.Value
}

// AddEventListener keeps the listener for the life of the page.
func (t eventTarget) AddEventListener(event string, fn browser.Listener, capture bool) {
	t.v.Call("addEventListener", event, js.FuncOf(func(_ js.Value, args []js.Value) any {
		e := arg(args, 0)
		fn(browser.Event{Type: stringOf(e.Get("type")), Target: elementOf(e.Get("target"))})
		return nil
	}), capture)
}

type document struct {
	eventTarget
	v js.Value
}

func (d document) Title() string { return stringOf(d.v.Get("title")) }

func (d document) ClientWidth() int  { return d.root().Get("clientWidth").Int() }
func (d document) ClientHeight() int { return d.root().Get("clientHeight").Int() }

func (d document) root() js.Value {
	if el := d.v.Get("documentElement"); defined(el) {
		return el
	}
	return d.v.Get("body")
}

type location struct {
	v js.Value
}

func (l location) Href() string { return stringOf(l.v.Get("href")) }

type navigator struct {
	v js.Value
}

func (n navigator) UserAgent() string { return stringOf(n.v.Get("userAgent")) }
func (n navigator) Language() string  { return stringOf(n.v.Get("language")) }

type beaconNavigator struct {
	navigator
}

func (n beaconNavigator) SendBeacon(url string, data []byte) bool {
	return n.v.Call("sendBeacon", url, string(data)).Truthy()
}

type element struct {
	v js.Value
}

func elementOf(v js.Value) browser.Element {
	// only element nodes
	if v.Type() != js.TypeObject || v.Get("nodeType").Type() != js.TypeNumber || v.Get("nodeType").Int() != 1 {
		return nil
	}
	return element{v: v}
}

func (e element) TagName() string { return stringOf(e.v.Get("tagName")) }
func (e element) ID() string      { return stringOf(e.v.Get("id")) }

// ClassName is "" for SVG elements, whose className is not a string.
func (e element) ClassName() string { return stringOf(e.v.Get("className")) }

func (e element) Attribute(name string) string {
	return stringOf(e.v.Call("getAttribute", name))
}

func (e element) Parent() browser.Element {
	return elementOf(e.v.Get("parentNode"))
}

type requests struct {
	p *binding
}

func (r requests) NewXHR() browser.XHR {
	return r.p.wrapXHR(r.p.window.Get("XMLHttpRequest").New())
}

func (r requests) NewXDomainRequest() (browser.XDomainRequest, bool) {
	ctor := r.p.window.Get("XDomainRequest")
	if !isFunc(ctor) {
		return nil, false
	}
	return &xDomainRequest{v: ctor.New()}, true
}

type xhr struct {
	v  js.Value
	p  *binding
	id int

	mu     sync.Mutex
	values map[string]any

	// page arguments of the open or send call in progress
	openArgs []js.Value
	sendArgs []js.Value

	handlers    []js.Func
	prevHandler js.Value
}

func (x *xhr) Open(method, url string) { x.p.page.XHR.Open.Get()(x, method, url) }
func (x *xhr) Send(body []byte)        { x.p.page.XHR.Send.Get()(x, body) }

func (x *xhr) keep(dst *[]js.Value, args []js.Value) {
	x.mu.Lock()
	defer x.mu.Unlock()
	*dst = args
}

func (x *xhr) take(src *[]js.Value) []js.Value {
	x.mu.Lock()
	defer x.mu.Unlock()
	args := *src
	*src = nil
	return args
}

func (x *xhr) SetRequestHeader(name, value string) {
	x.v.Call("setRequestHeader", name, value)
}

func (x *xhr) ReadyState() int { return x.v.Get("readyState").Int() }
func (x *xhr) Status() int     { return x.v.Get("status").Int() }

func (x *xhr) OnReadyStateChange() func() {
	fn := x.v.Get("onreadystatechange")
	if !isFunc(fn) {
		return nil
	}
	return func() { fn.Call("call", x.v) }
}

// SetOnReadyStateChange installs fn until the request is done. The handler
// the page had before is put back then.
func (x *xhr) SetOnReadyStateChange(fn func()) {
	h := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		if x.ReadyState() == browser.Done {
			x.release()
		}
		return nil
	})

	x.mu.Lock()
	if len(x.handlers) == 0 {
		x.prevHandler = x.v.Get("onreadystatechange")
	}
	x.handlers = append(x.handlers, h)
	x.mu.Unlock()

	x.v.Set("onreadystatechange", h)
}

func (x *xhr) hooked() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.handlers) > 0
}

func (x *xhr) release() {
	x.mu.Lock()
	handlers, prev := x.handlers, x.prevHandler
	x.handlers, x.prevHandler = nil, js.Undefined()
	x.mu.Unlock()

	if len(handlers) > 0 {
		x.v.Set("onreadystatechange", prev)
	}
	for _, h := range handlers {
		h.Release()
	}
	x.p.forget(x)
}

func (x *xhr) Value(key string) any {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.values[key]
}

func (x *xhr) SetValue(key string, v any) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.values[key] = v
}

func (x *xhr) WithCredentials() bool {
	return x.v.Get("withCredentials").Type() != js.TypeUndefined
}

type xDomainRequest struct {
	v js.Value

	mu    sync.Mutex
	funcs []js.Func
}

func (r *xDomainRequest) Open(method, url string) { r.v.Call("open", method, url) }
func (r *xDomainRequest) Send(body []byte)        { r.v.Call("send", string(body)) }

func (r *xDomainRequest) SetOnLoad(fn func())  { r.on("onload", fn) }
func (r *xDomainRequest) SetOnError(fn func()) { r.on("onerror", fn) }

// on sets a one-shot handler: load and error both end the request.
func (r *xDomainRequest) on(member string, fn func()) {
	f := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		r.release()
		return nil
	})
	r.mu.Lock()
	r.funcs = append(r.funcs, f)
	r.mu.Unlock()
	r.v.Set(member, f)
}

func (r *xDomainRequest) release() {
	r.mu.Lock()
	funcs := r.funcs
	r.funcs = nil
	r.mu.Unlock()

	if len(funcs) == 0 {
		return
	}
	r.v.Set("onload", js.Null())
	r.v.Set("onerror", js.Null())
	for _, f := range funcs {
		f.Release()
	}
}

type performance struct {
	v js.Value
}

// Timing goes through JSON.stringify, which honours the timing toJSON.
func (p performance) Timing() browser.NavigationTiming {
	var t browser.NavigationTiming
	raw := js.Global().Get("JSON").Call("stringify", p.v.Get("timing")).String()
	_ = json.Unmarshal([]byte(raw), &t)
	return t
}

func (p performance) Navigation() browser.NavigationInfo {
	nav := p.v.Get("navigation")
	if !defined(nav) {
		return browser.NavigationInfo{}
	}
	return browser.NavigationInfo{Type: intOf(nav.Get("type")), RedirectCount: intOf(nav.Get("redirectCount"))}
}

func (p performance) Resources() []browser.ResourceEntry {
	if !isFunc(p.v.Get("getEntriesByType")) {
		return nil
	}
	list := p.v.Call("getEntriesByType", "resource")
	out := make([]browser.ResourceEntry, 0, list.Length())
	for i := 0; i < list.Length(); i++ {
		e := list.Index(i)
		out = append(out, browser.ResourceEntry{
			Name:          stringOf(e.Get("name")),
			InitiatorType: stringOf(e.Get("initiatorType")),
			Duration:      floatOf(e.Get("duration")),
			TransferSize:  int64(floatOf(e.Get("transferSize"))),
		})
	}
	return out
}

func arg(args []js.Value, i int) js.Value {
	if i < len(args) {
		return args[i]
	}
	return js.Undefined()
}

func defined(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull()
}

func isFunc(v js.Value) bool {
	return v.Type() == js.TypeFunction
}

func stringOf(v js.Value) string {
	if v.Type() != js.TypeString {
		return ""
	}
	return v.String()
}

func intOf(v js.Value) int {
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Int()
}

func intPtrOf(v js.Value) *int {
	if v.Type() != js.TypeNumber {
		return nil
	}
	n := v.Int()
	return &n
}

func floatOf(v js.Value) float64 {
	if v.Type() != js.TypeNumber {
		return 0
	}
	return v.Float()
}

// bodyOf is the Go view of a send body. Non-string bodies read the way
// String(v) prints them.
func bodyOf(v js.Value) []byte {
	switch {
	case !defined(v):
		return nil
	case v.Type() == js.TypeString:
		return []byte(v.String())
	default:
		return []byte(jsString{v}.String())
	}
}

func array(args []js.Value) js.Value {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}
	return js.ValueOf(vals)
}

// goValues converts console arguments. Other values are wrapped so the
// native console still receives them as they were.
func goValues(args []js.Value) []any {
	out := make([]any, len(args))
	for i, v := range args {
		switch v.Type() {
		case js.TypeString:
			out[i] = v.String()
		case js.TypeNumber:
			out[i] = v.Float()
		case js.TypeBoolean:
			out[i] = v.Bool()
		default:
			out[i] = jsString{v}
		}
	}
	return out
}

func jsValues(args []any) js.Value {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case jsString:
			out[i] = v.Value
		case string, float64, bool:
			out[i] = v
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return js.ValueOf(out)
}

// jsString prints values the way String(v) does.
type jsString struct {
	js.Value
}

func (s jsString) String() string {
	return js.Global().Call("String", s.Value).String()
}

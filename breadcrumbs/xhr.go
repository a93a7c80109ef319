package breadcrumbs

import (
	"strconv"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/intercept"
)

const (
	xhrPrototype = "XMLHttpRequest.prototype"

	// xhrKey stores the request info stashed by open on the XHR.
	xhrKey = "tracer.xhr"
)

type xhrInfo struct {
	method string
	url    string
}

func (r *Recorder) installXHR(page *browser.Page) {
	if page.XHR == nil {
		return
	}

	intercept.Install(page.Interceptors, xhrPrototype, "open", page.XHR.Open, func(original browser.OpenFunc) browser.OpenFunc {
		return func(x browser.XHR, method, url string) {
			x.SetValue(xhrKey, &xhrInfo{method: method, url: url})
			if original != nil {
				original(x, method, url)
			}
		}
	})

	intercept.Install(page.Interceptors, xhrPrototype, "send", page.XHR.Send, func(original browser.SendFunc) browser.SendFunc {
		return func(x browser.XHR, body []byte) {
			observe := func() {
				r.readyStateChanged(x)
			}
			if existing := x.OnReadyStateChange(); existing != nil {
				x.SetOnReadyStateChange(func() {
					observe()
					existing()
				})
			} else {
				x.SetOnReadyStateChange(observe)
			}

			if original != nil {
				original(x, body)
			}
		}
	})
}

func (r *Recorder) readyStateChanged(x browser.XHR) {
	info, ok := x.Value(xhrKey).(*xhrInfo)
	if !ok {
		return
	}
	if state := x.ReadyState(); state != browser.Opened && state != browser.Done {
		return
	}
	r.Capture(Crumb{
		Type:     "http",
		Category: CategoryXHR,
		Data: map[string]string{
			"method":     info.method,
			"url":        info.url,
			"statusCode": strconv.Itoa(x.Status()),
		},
	})
}

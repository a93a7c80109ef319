package writers

import (
	"fmt"
	"regexp"

	"github.com/goccy/go-json"

	"github.com/lognitor/go-tracer/browser"
)

var scheme = regexp.MustCompile(`^https?:`)

// BrowserTransport posts payloads with the page's own request objects.
type BrowserTransport struct {
	page *browser.Page
}

var _ Transport = (*BrowserTransport)(nil)

func NewBrowserTransport(page *browser.Page) *BrowserTransport {
	return &BrowserTransport{page: page}
}

// MakeRequest uses an XHR when it supports CORS and falls back to
// XDomainRequest with a protocol relative URL.
func (t *BrowserTransport) MakeRequest(req Request) {
	if t.page == nil || t.page.Requests == nil {
		req.fail(ErrNoCORS)
		return
	}

	body, err := json.Marshal(req.Data)
	if err != nil {
		req.fail(fmt.Errorf("failed to marshal payload: %w", err))
		return
	}

	x := t.page.Requests.NewXHR()
	if x.WithCredentials() {
		x.SetOnReadyStateChange(func() {
			if x.ReadyState() != browser.Done {
				return
			}
			if status := x.Status(); status != 200 {
				req.fail(fmt.Errorf("%w: %d", ErrUnexpectedStatus, status))
				return
			}
			req.succeed()
		})
		x.Open("POST", req.URL)
		x.Send(body)
		return
	}

	// XDomainRequest cannot switch between http and https
	xdr, ok := t.page.Requests.NewXDomainRequest()
	if !ok {
		req.fail(ErrNoCORS)
		return
	}
	xdr.SetOnLoad(req.succeed)
	xdr.SetOnError(func() {
		req.fail(ErrXDomainRequest)
	})
	xdr.Open("POST", scheme.ReplaceAllString(req.URL, ""))
	xdr.Send(body)
}

// Beacon sends payloads with navigator.sendBeacon when the page has it and
// hands them to fallback otherwise.
type Beacon struct {
	page     *browser.Page
	fallback Transport
}

var _ Transport = (*Beacon)(nil)

func NewBeacon(page *browser.Page, fallback Transport) *Beacon {
	return &Beacon{page: page, fallback: fallback}
}

func (b *Beacon) MakeRequest(req Request) {
	if b.page != nil {
		if beaconer, ok := b.page.Navigator.(browser.Beaconer); ok {
			body, err := json.Marshal(req.Data)
			if err != nil {
				req.fail(fmt.Errorf("failed to marshal payload: %w", err))
				return
			}
			// false means the user agent refused to queue it
			if beaconer.SendBeacon(req.URL, body) {
				req.succeed()
				return
			}
		}
	}

	if b.fallback == nil {
		req.fail(ErrNoCORS)
		return
	}
	b.fallback.MakeRequest(req)
}

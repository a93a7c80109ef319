package breadcrumbs

import (
	"regexp"

	"github.com/lognitor/go-tracer/browser"
	"github.com/lognitor/go-tracer/intercept"
)

// RFC 3986 appendix B
var urlParts = regexp.MustCompile(`^(([^:/?#]+):)?(//([^/?#]*))?([^?#]*)(\?([^#]*))?(#(.*))?$`)

// URL is a URL split into the parts navigation crumbs compare.
type URL struct {
	Protocol string
	Host     string
	Path     string
	// Relative is everything but the origin: path, query and fragment.
	Relative string
}

// ParseURL splits raw without resolving or validating it.
func ParseURL(raw string) (URL, bool) {
	m := urlParts.FindStringSubmatch(raw)
	if m == nil {
		return URL{}, false
	}
	return URL{
		Protocol: m[2],
		Host:     m[4],
		Path:     m[5],
		Relative: m[5] + m[6] + m[8],
	}, true
}

func (r *Recorder) installNavigation(page *browser.Page) {
	if page.History == nil {
		return
	}

	if page.OnPopState != nil {
		intercept.Install(page.Interceptors, "window", "onpopstate", page.OnPopState, func(original func()) func() {
			return func() {
				r.captureURLChange(r.currentHref(), page.Href())
				if original != nil {
					original()
				}
			}
		})
	}

	intercept.Install(page.Interceptors, "history", "pushState", page.History.PushState, func(original browser.PushStateFunc) browser.PushStateFunc {
		return func(state any, title, url string) {
			// url is optional
			if url != "" {
				r.captureURLChange(r.currentHref(), url)
			}
			if original != nil {
				original(state, title, url)
			}
		}
	})
}

func (r *Recorder) currentHref() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHref
}

// captureURLChange records a navigation. Both ends are reduced to their
// relative part when they share protocol and host with the page.
func (r *Recorder) captureURLChange(from, to string) {
	r.mu.Lock()
	r.lastHref = to
	page := r.page
	r.mu.Unlock()

	loc, _ := ParseURL(page.Href())
	if parsed, ok := ParseURL(to); ok && sameOrigin(loc, parsed) {
		to = parsed.Relative
	}
	if parsed, ok := ParseURL(from); ok && sameOrigin(loc, parsed) {
		from = parsed.Relative
	}

	r.Capture(Crumb{
		Category: CategoryNavigation,
		Data: map[string]string{
			"to":   to,
			"from": from,
		},
	})
}

func sameOrigin(a, b URL) bool {
	return a.Protocol == b.Protocol && a.Host == b.Host
}

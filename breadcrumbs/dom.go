package breadcrumbs

import (
	"strings"

	"github.com/lognitor/go-tracer/browser"
)

var (
	clickSelectors = []string{"a", "button", "input[button]", "input[submit]", "input[radio]", "input[checkbox]"}
	blurSelectors  = []string{"input[text]", "input[password]", "textarea", "select"}

	attrWhitelist = []string{"type", "name", "title", "alt"}
)

const (
	maxTraverseHeight = 5
	maxOutputLen      = 80
	treeSeparator     = " > "
)

func (r *Recorder) installDOM(page *browser.Page) {
	if page.Document == nil {
		return
	}
	page.Document.AddEventListener("click", func(e browser.Event) {
		r.domEvent(CategoryClick, clickSelectors, e)
	}, true)
	page.Document.AddEventListener("blur", func(e browser.Event) {
		r.domEvent(CategoryInput, blurSelectors, e)
	}, true)
}

func (r *Recorder) domEvent(category string, selectors []string, e browser.Event) {
	if e.Target == nil || !acceptTag(e.Target, selectors) {
		return
	}
	r.Capture(Crumb{
		Category: category,
		HTMLTree: HTMLTreeAsString(e.Target),
	})
}

// acceptTag matches the element's tag, qualified by its type for inputs,
// against selectors.
func acceptTag(el browser.Element, selectors []string) bool {
	tag := strings.ToLower(el.TagName())
	if tag == "input" {
		if typ := el.Attribute("type"); typ != "" {
			tag += "[" + typ + "]"
		}
	}
	for _, s := range selectors {
		if s == tag {
			return true
		}
	}
	return false
}

// HTMLTreeAsString describes el and up to four ancestors as a selector
// path, e.g. `body > div#main > button.btn[type="submit"]`. The walk stops
// at <html> or when the path would reach 80 characters.
func HTMLTreeAsString(el browser.Element) string {
	out := make([]string, 0, maxTraverseHeight)
	length := 0

	for height := 0; el != nil && height < maxTraverseHeight; el = el.Parent() {
		height++
		next := htmlElementAsString(el)
		if next == "html" || height > 1 && length+len(out)*len(treeSeparator)+len(next) >= maxOutputLen {
			break
		}
		out = append(out, next)
		length += len(next)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return strings.Join(out, treeSeparator)
}

func htmlElementAsString(el browser.Element) string {
	tag := el.TagName()
	if tag == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(tag))
	if id := el.ID(); id != "" {
		b.WriteString("#" + id)
	}
	for _, class := range strings.Fields(el.ClassName()) {
		b.WriteString("." + class)
	}
	for _, key := range attrWhitelist {
		if v := el.Attribute(key); v != "" {
			b.WriteString("[" + key + `="` + v + `"]`)
		}
	}
	return b.String()
}

package browsertest

import "github.com/lognitor/go-tracer/browser"

// Element is an in-memory DOM element.
type Element struct {
	tag    string
	id     string
	class  string
	attrs  map[string]string
	parent *Element
}

var _ browser.Element = (*Element)(nil)

// NewElement creates an element under parent, which may be nil.
func NewElement(tag string, parent *Element) *Element {
	return &Element{tag: tag, parent: parent, attrs: map[string]string{}}
}

// Tree builds html > body and returns body.
func Tree() *Element {
	return NewElement("BODY", NewElement("HTML", nil))
}

// WithID sets the id and returns e.
func (e *Element) WithID(id string) *Element {
	e.id = id
	return e
}

// WithClass sets the class attribute and returns e.
func (e *Element) WithClass(class string) *Element {
	e.class = class
	return e
}

// WithAttr sets an attribute and returns e.
func (e *Element) WithAttr(name, value string) *Element {
	e.attrs[name] = value
	return e
}

// Child creates an element under e.
func (e *Element) Child(tag string) *Element {
	return NewElement(tag, e)
}

func (e *Element) TagName() string   { return e.tag }
func (e *Element) ID() string        { return e.id }
func (e *Element) ClassName() string { return e.class }

func (e *Element) Attribute(name string) string {
	return e.attrs[name]
}

func (e *Element) Parent() browser.Element {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

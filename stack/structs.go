package stack

// Frame is one normalized stack frame. URL is empty for native frames and
// for frames whose location the engine did not expose.
type Frame struct {
	URL      string   `json:"url,omitempty"`
	Function string   `json:"func"`
	Args     []string `json:"args,omitempty"`
	Line     *int     `json:"line,omitempty"`
	Column   *int     `json:"column,omitempty"`
}

// StackInfo is the analyzer output. Frames are ordered innermost first.
type StackInfo struct {
	Type    string  `json:"type,omitempty"`
	Message string  `json:"message"`
	URL     string  `json:"url"`
	Frames  []Frame `json:"stack"`
	// Line is the line the engine reported next to the error, if any.
	Line *int `json:"line,omitempty"`
	// Partial is set when a synthesized first frame was prepended.
	Partial bool `json:"partial,omitempty"`
	// Incomplete is set when no usable frame data exists.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Error is an error-shaped value raised by the page, carrying whatever the
// engine exposes. Only Name and Message are always present.
type Error struct {
	Name    string
	Message string
	// Stack is the engine-native multi-line stack string.
	Stack string
	// ColumnNumber is the 0-based column of the top frame (Gecko).
	ColumnNumber *int
	// SourceURL, Line come from Safari; FileName, LineNumber from Gecko and IE.
	SourceURL   string
	FileName    string
	Line        *int
	LineNumber  *int
	Description string
	// Callers is the caller chain for engines without stack strings.
	Callers Caller
}

// NewError creates an Error like `new Error(message)` would, without a stack.
func NewError(name, message string) *Error {
	return &Error{Name: name, Message: message}
}

func (e *Error) Error() string {
	switch {
	case e.Name == "":
		return e.Message
	case e.Message == "":
		return e.Name
	default:
		return e.Name + ": " + e.Message
	}
}

func (e *Error) location() (string, int) {
	url := e.SourceURL
	if url == "" {
		url = e.FileName
	}
	line := 0
	if e.Line != nil {
		line = *e.Line
	} else if e.LineNumber != nil {
		line = *e.LineNumber
	}
	return url, line
}

func intPtr(v int) *int {
	return &v
}

package stack

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// structuredExtractor is the name suffix of the stack-string strategy; the
// caller walk skips it if an engine lists it in the chain.
const structuredExtractor = ".fromStackString"

var (
	errorTypes   = regexp.MustCompile(`^(?:[Uu]ncaught (?:exception: )?)?(?:((?:Eval|Internal|Range|Reference|Syntax|Type|URI|)Error): )?(.*)$`)
	functionName = regexp.MustCompile(`(?i)function\s+([_$a-zA-Z\x{A0}-\x{FFFF}][_$a-zA-Z0-9\x{A0}-\x{FFFF}]*)?\s*\(`)

	errNoFrames = errors.New("no frames")
)

// Logger receives strategy failures. *logger.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Analyzer turns raised errors into StackInfo values.
type Analyzer struct {
	origin func() string
	log    Logger
}

// NewAnalyzer creates an analyzer. origin returns the current document URL.
func NewAnalyzer(origin func() string, log Logger) *Analyzer {
	if origin == nil {
		origin = func() string { return "" }
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Analyzer{origin: origin, log: log}
}

// Analyze builds a StackInfo for e. It tries the engine stack string first,
// then the caller chain, then gives up with an empty incomplete stack.
// depth drops that many internal frames from the front of a caller-chain
// result. Analyze never panics on malformed input.
func (a *Analyzer) Analyze(e *Error, depth int) *StackInfo {
	if e == nil {
		return &StackInfo{URL: a.origin(), Incomplete: true}
	}

	var errs *multierror.Error

	info, err := attempt("stack string", func() *StackInfo {
		return a.fromStackString(e)
	})
	if info != nil {
		return info
	}
	errs = multierror.Append(errs, err)

	head := e.Callers
	if head == nil {
		head = RuntimeCallers(1)
	}

	info, err = attempt("caller chain", func() *StackInfo {
		return a.fromCallerChain(e, head, depth)
	})
	if info != nil {
		a.log.Debugf("stack analysis of %q fell back to the caller chain: %s", e.Message, errs.ErrorOrNil())
		return info
	}
	errs = multierror.Append(errs, err)
	a.log.Debugf("stack analysis of %q failed: %s", e.Message, errs.ErrorOrNil())

	return &StackInfo{
		Type:       e.Name,
		Message:    e.Message,
		URL:        a.origin(),
		Incomplete: true,
	}
}

func attempt(name string, fn func() *StackInfo) (info *StackInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			info = nil
			err = fmt.Errorf("%s: %v", name, r)
		}
	}()

	info = fn()
	if info == nil {
		return nil, fmt.Errorf("%s: %w", name, errNoFrames)
	}
	return info, nil
}

func (a *Analyzer) fromStackString(e *Error) *StackInfo {
	if strings.TrimSpace(e.Stack) == "" {
		return nil
	}

	frames := make([]Frame, 0)
	for _, line := range strings.Split(e.Stack, "\n") {
		p, ok := parseLine(line)
		if !ok {
			continue
		}
		// only the top frame can take the engine's separate column; it is
		// 0-based while every stack string column is 1-based
		if len(frames) == 0 && p.frame.Column == nil && !p.eval && e.ColumnNumber != nil {
			p.frame.Column = intPtr(*e.ColumnNumber + 1)
		}
		frames = append(frames, p.frame)
	}

	if len(frames) == 0 {
		return nil
	}

	return &StackInfo{
		Type:    e.Name,
		Message: e.Message,
		URL:     a.origin(),
		Frames:  frames,
	}
}

func (a *Analyzer) fromCallerChain(e *Error, head Caller, depth int) *StackInfo {
	frames := make([]Frame, 0)
	seen := map[string]bool{}
	recursion := false

	for curr := head; curr != nil && !recursion; curr = curr.Caller() {
		if strings.HasSuffix(curr.Name(), structuredExtractor) {
			continue
		}

		source := curr.Source()
		frame := Frame{Function: callerName(curr.Name(), source)}
		if l, ok := curr.(Locator); ok {
			if url, line, ok := l.Location(); ok {
				frame.URL = url
				frame.Line = intPtr(line)
			}
		}

		if seen[source] {
			recursion = true
		} else {
			seen[source] = true
		}

		frames = append(frames, frame)
	}

	if depth > 0 {
		if depth >= len(frames) {
			frames = frames[:0]
		} else {
			frames = frames[depth:]
		}
	}

	info := &StackInfo{
		Type:    e.Name,
		Message: e.Message,
		URL:     a.origin(),
		Frames:  frames,
	}

	url, line := e.location()
	if line > 0 {
		info.Line = intPtr(line)
	}
	AugmentFirstFrame(info, url, line)

	return info
}

func callerName(name, source string) string {
	if name != "" {
		return name
	}
	if parts := functionName.FindStringSubmatch(source); parts != nil && parts[1] != "" {
		return parts[1]
	}
	if i := strings.Index(source, "{"); i >= 0 {
		source = source[:i]
	}
	if source = strings.TrimSpace(source); source != "" {
		return source
	}
	return "?"
}

// AugmentFirstFrame adds the single location an engine exposes on the error
// object to a stack that may lack it. It returns true when a frame was
// prepended, which marks the stack partial. A missing url or line marks the
// stack incomplete and changes nothing else.
func AugmentFirstFrame(info *StackInfo, url string, line int) bool {
	if url == "" || line == 0 {
		info.Incomplete = true
		return false
	}
	info.Incomplete = false

	initial := Frame{URL: url, Line: intPtr(line), Function: "?"}

	if len(info.Frames) > 0 && info.Frames[0].URL == initial.URL {
		top := info.Frames[0]
		if top.Line != nil && *top.Line == line {
			return false
		}
		if top.Line == nil && top.Function == initial.Function {
			top.Line = intPtr(line)
			info.Frames[0] = top
			return false
		}
	}

	info.Frames = append([]Frame{initial}, info.Frames...)
	info.Partial = true
	return true
}

// FromGlobalError builds a StackInfo from a window.onerror call that came
// without an error object. The message is split into an error class and the
// remaining text.
func (a *Analyzer) FromGlobalError(message, source string, line, col int) *StackInfo {
	frame := Frame{URL: source, Function: "?"}
	if line > 0 {
		frame.Line = intPtr(line)
	}
	if col > 0 {
		frame.Column = intPtr(col)
	}

	typ, msg := SplitMessage(message)
	return &StackInfo{
		Type:    typ,
		Message: msg,
		URL:     a.origin(),
		Frames:  []Frame{frame},
		Line:    frame.Line,
	}
}

// SplitMessage splits "Uncaught TypeError: x is undefined" into
// ("TypeError", "x is undefined").
func SplitMessage(message string) (string, string) {
	parts := errorTypes.FindStringSubmatch(message)
	if parts == nil {
		return "", message
	}
	return parts[1], parts[2]
}

package stack

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	chromeLine = regexp.MustCompile(`(?i)^\s*at (.*?) ?\(((?:file|https?|blob|chrome-extension|native|eval|webpack|<anonymous>|/).*?)(?::(\d+))?(?::(\d+))?\)?\s*$`)
	winjsLine  = regexp.MustCompile(`(?i)^\s*at (?:((?:\[object object\])?.+) )?\(?((?:file|ms-appx|https?|webpack|blob):.*?):(\d+)(?::(\d+))?\)?\s*$`)
	geckoLine  = regexp.MustCompile(`(?i)^\s*(.*?)(?:\((.*?)\))?(?:^|@)((?:file|https?|blob|chrome|webpack|resource|\[native).*?)(?::(\d+))?(?::(\d+))?\s*$`)

	chromeEval = regexp.MustCompile(`\((\S*)(?::(\d+))(?::(\d+))\)`)
	geckoEval  = regexp.MustCompile(`(?i)(\S+) line (\d+)(?: > eval line \d+)* > eval`)
)

// parsedLine is a frame matched by one grammar. eval marks frames whose
// location was rewritten to the outermost eval call site.
type parsedLine struct {
	frame Frame
	eval  bool
}

// lineGrammar recognizes one engine's stack line format.
type lineGrammar interface {
	parse(line string) (parsedLine, bool)
}

// grammars are tried in order; the first match wins.
var grammars = []lineGrammar{
	chromeGrammar{},
	winjsGrammar{},
	geckoGrammar{},
}

// chromeGrammar matches V8 lines: "at func (url:line:col)".
type chromeGrammar struct{}

func (chromeGrammar) parse(line string) (parsedLine, bool) {
	parts := chromeLine.FindStringSubmatch(line)
	if parts == nil {
		return parsedLine{}, false
	}

	location, lineNo, colNo := parts[2], parts[3], parts[4]
	isNative := strings.HasPrefix(location, "native")
	isEval := strings.HasPrefix(location, "eval")
	if isEval {
		if sub := chromeEval.FindStringSubmatch(location); sub != nil {
			location, lineNo, colNo = sub[1], sub[2], sub[3]
		}
	}

	frame := Frame{
		Function: funcOrUnknown(parts[1]),
		Args:     []string{},
		Line:     atoi(lineNo),
		Column:   atoi(colNo),
	}
	if isNative {
		frame.Args = []string{location}
	} else {
		frame.URL = location
	}
	return parsedLine{frame: frame, eval: isEval}, true
}

// winjsGrammar matches Windows app container lines: "at func (ms-appx://...:line:col)".
type winjsGrammar struct{}

func (winjsGrammar) parse(line string) (parsedLine, bool) {
	parts := winjsLine.FindStringSubmatch(line)
	if parts == nil {
		return parsedLine{}, false
	}
	return parsedLine{frame: Frame{
		URL:      parts[2],
		Function: funcOrUnknown(parts[1]),
		Args:     []string{},
		Line:     atoi(parts[3]),
		Column:   atoi(parts[4]),
	}}, true
}

// geckoGrammar matches Mozilla and Safari lines: "func(args)@url:line:col".
type geckoGrammar struct{}

func (geckoGrammar) parse(line string) (parsedLine, bool) {
	parts := geckoLine.FindStringSubmatch(line)
	if parts == nil {
		return parsedLine{}, false
	}

	location, lineNo, colNo := parts[3], parts[4], parts[5]
	isEval := strings.Contains(location, " > eval")
	if isEval {
		if sub := geckoEval.FindStringSubmatch(location); sub != nil {
			// eval frames carry no usable column
			location, lineNo, colNo = sub[1], sub[2], ""
		}
	}

	args := []string{}
	if parts[2] != "" {
		args = strings.Split(parts[2], ",")
	}

	return parsedLine{
		frame: Frame{
			URL:      location,
			Function: funcOrUnknown(parts[1]),
			Args:     args,
			Line:     atoi(lineNo),
			Column:   atoi(colNo),
		},
		eval: isEval,
	}, true
}

// ParseLine parses a single stack line with the first grammar that matches it.
func ParseLine(line string) (Frame, bool) {
	p, ok := parseLine(line)
	return p.frame, ok
}

func parseLine(line string) (parsedLine, bool) {
	for _, g := range grammars {
		if p, ok := g.parse(line); ok {
			if p.frame.Function == "" && p.frame.Line != nil {
				p.frame.Function = "?"
			}
			return p, true
		}
	}
	return parsedLine{}, false
}

// ParseStack parses every line of an engine stack string. Lines that match no
// grammar are dropped.
func ParseStack(text string) []Frame {
	frames := make([]Frame, 0)
	for _, line := range strings.Split(text, "\n") {
		if f, ok := ParseLine(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func funcOrUnknown(name string) string {
	if name == "" {
		return "?"
	}
	return name
}

func atoi(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

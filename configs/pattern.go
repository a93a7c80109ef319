package configs

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Pattern is one ignoreErrors or ignoreUrls entry: a literal string matched
// anywhere in the text, or a regular expression.
type Pattern struct {
	Literal string
	Regexp  *regexp.Regexp
}

// Literal creates a pattern matching s as plain text.
func Literal(s string) Pattern {
	return Pattern{Literal: s}
}

// Regexp creates a pattern from a regular expression source.
func Regexp(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w: %s", ErrInvalidPattern, err)
	}
	return Pattern{Regexp: re}, nil
}

// MustRegexp is like Regexp but panics on a bad expression.
func MustRegexp(expr string) Pattern {
	p, err := Regexp(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) source() string {
	if p.Regexp != nil {
		return p.Regexp.String()
	}
	return regexp.QuoteMeta(p.Literal)
}

// Messages browsers report when a cross-origin script hides the real error.
var scriptErrors = []Pattern{
	MustRegexp(`^Script error\.?$`),
	MustRegexp(`^Javascript error: Script error\.? on line 0$`),
}

// JoinPatterns compiles patterns into one case-insensitive alternation.
// Literals are escaped, regular expressions contribute their source. It
// returns nil for no patterns; a nil matcher matches nothing.
func JoinPatterns(patterns []Pattern) (*regexp.Regexp, error) {
	sources := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p.Regexp == nil && p.Literal == "" {
			continue
		}
		sources = append(sources, p.source())
	}
	if len(sources) == 0 {
		return nil, nil
	}

	re, err := regexp.Compile("(?i)" + strings.Join(sources, "|"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPattern, err)
	}
	return re, nil
}

var patternType = reflect.TypeOf(Pattern{})

// patternHook decodes strings and *regexp.Regexp values into Pattern.
func patternHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != patternType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return Literal(v), nil
	case *regexp.Regexp:
		return Pattern{Regexp: v}, nil
	case Pattern:
		return v, nil
	}
	return nil, fmt.Errorf("%w: unsupported %T", ErrInvalidPattern, data)
}

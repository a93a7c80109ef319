package stack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	name   string
	source string
	next   *fakeCaller
	panics bool
}

func (c *fakeCaller) Name() string {
	if c.panics {
		panic("caller property is not accessible in strict mode")
	}
	return c.name
}

func (c *fakeCaller) Source() string { return c.source }

func (c *fakeCaller) Caller() Caller {
	if c.next == nil {
		return nil
	}
	return c.next
}

func chain(callers ...*fakeCaller) *fakeCaller {
	for i := 0; i < len(callers)-1; i++ {
		callers[i].next = callers[i+1]
	}
	return callers[0]
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(func() string { return "http://x/page.html" }, nil)
}

func TestAnalyzeStackString(t *testing.T) {
	info := newTestAnalyzer().Analyze(&Error{
		Name:    "Error",
		Message: "boom",
		Stack:   "Error: boom\n    at foo (http://x/a.js:10:5)\n    at bar (http://x/a.js:20:3)",
	}, 0)

	require.Len(t, info.Frames, 2)
	assert.Equal(t, "Error", info.Type)
	assert.Equal(t, "boom", info.Message)
	assert.Equal(t, "http://x/page.html", info.URL)
	assert.Equal(t, "foo", info.Frames[0].Function)
	assert.Equal(t, "bar", info.Frames[1].Function)
	assert.False(t, info.Partial)
	assert.False(t, info.Incomplete)
}

func TestAnalyzeInjectsTopColumn(t *testing.T) {
	info := newTestAnalyzer().Analyze(&Error{
		Name:         "TypeError",
		Message:      "x is undefined",
		Stack:        "foo@http://x/a.js:10\nbar@http://x/a.js:20",
		ColumnNumber: intPtr(4),
	}, 0)

	require.Len(t, info.Frames, 2)
	require.NotNil(t, info.Frames[0].Column)
	assert.Equal(t, 5, *info.Frames[0].Column)
	assert.Nil(t, info.Frames[1].Column)
}

func TestAnalyzeSkipsColumnForEvalTop(t *testing.T) {
	info := newTestAnalyzer().Analyze(&Error{
		Message:      "boom",
		Stack:        "foo@http://x/a.js line 2 > eval:1:1",
		ColumnNumber: intPtr(4),
	}, 0)

	require.Len(t, info.Frames, 1)
	assert.Nil(t, info.Frames[0].Column)
	assert.Equal(t, 2, *info.Frames[0].Line)
}

func TestAnalyzeCallerChain(t *testing.T) {
	head := chain(
		&fakeCaller{name: "github.com/lognitor/go-tracer/stack.(*Analyzer).fromStackString", source: "x"},
		&fakeCaller{source: "function handleClick(e) { throw e }"},
		&fakeCaller{source: "function (e) { run(e) }"},
		&fakeCaller{name: "dispatch", source: "function dispatch() {}"},
	)

	info := newTestAnalyzer().Analyze(&Error{
		Name:    "Error",
		Message: "boom",
		Stack:   "no frames in here",
		Callers: head,
	}, 0)

	require.Len(t, info.Frames, 3)
	assert.Equal(t, "handleClick", info.Frames[0].Function)
	assert.Equal(t, "function (e)", info.Frames[1].Function)
	assert.Equal(t, "dispatch", info.Frames[2].Function)
	assert.True(t, info.Incomplete, "no location on the error object")
}

func TestAnalyzeCallerChainRecursionGuard(t *testing.T) {
	a := &fakeCaller{name: "a", source: "function a() { b() }"}
	b := &fakeCaller{name: "b", source: "function b() { a() }"}
	a.next = b
	b.next = a

	info := newTestAnalyzer().Analyze(&Error{Message: "loop", Callers: a}, 0)

	names := []string{}
	for _, f := range info.Frames {
		names = append(names, f.Function)
	}
	assert.Equal(t, []string{"a", "b", "a"}, names)
}

func TestAnalyzeCallerChainDepth(t *testing.T) {
	head := chain(
		&fakeCaller{name: "captureException", source: "1"},
		&fakeCaller{name: "userCode", source: "2"},
	)

	info := newTestAnalyzer().Analyze(&Error{Message: "boom", Callers: head}, 1)
	require.Len(t, info.Frames, 1)
	assert.Equal(t, "userCode", info.Frames[0].Function)

	info = newTestAnalyzer().Analyze(&Error{Message: "boom", Callers: head}, 5)
	assert.Empty(t, info.Frames)
}

func TestAnalyzeCallerChainAugmentsFirstFrame(t *testing.T) {
	head := chain(&fakeCaller{name: "run", source: "function run() {}"})

	info := newTestAnalyzer().Analyze(&Error{
		Message:   "boom",
		Callers:   head,
		SourceURL: "http://x/a.js",
		Line:      intPtr(42),
	}, 0)

	require.Len(t, info.Frames, 2)
	assert.Equal(t, "http://x/a.js", info.Frames[0].URL)
	assert.Equal(t, 42, *info.Frames[0].Line)
	assert.Equal(t, "?", info.Frames[0].Function)
	assert.True(t, info.Partial)
	assert.False(t, info.Incomplete)
}

func TestAnalyzeRuntimeCallers(t *testing.T) {
	info := newTestAnalyzer().Analyze(NewError("Error", "boom"), 0)

	require.NotEmpty(t, info.Frames)
	assert.True(t, strings.HasSuffix(info.Frames[0].Function, "TestAnalyzeRuntimeCallers"), info.Frames[0].Function)
	assert.True(t, strings.HasPrefix(info.Frames[0].URL, "file://"))
	assert.True(t, strings.HasSuffix(info.Frames[0].URL, "analyzer_test.go"))
}

func TestAnalyzeTotalFallback(t *testing.T) {
	info := newTestAnalyzer().Analyze(&Error{
		Name:    "Error",
		Message: "boom",
		Callers: &fakeCaller{panics: true},
	}, 0)

	assert.Equal(t, "Error", info.Type)
	assert.Equal(t, "boom", info.Message)
	assert.Equal(t, "http://x/page.html", info.URL)
	assert.Empty(t, info.Frames)
	assert.True(t, info.Incomplete)
}

func TestAugmentFirstFrame(t *testing.T) {
	t.Run("missing location marks incomplete", func(t *testing.T) {
		info := &StackInfo{}
		assert.False(t, AugmentFirstFrame(info, "", 10))
		assert.True(t, info.Incomplete)
		assert.Empty(t, info.Frames)
	})

	t.Run("same frame already captured", func(t *testing.T) {
		info := &StackInfo{Frames: []Frame{{URL: "http://x/a.js", Line: intPtr(10), Function: "foo"}}}
		assert.False(t, AugmentFirstFrame(info, "http://x/a.js", 10))
		assert.Len(t, info.Frames, 1)
		assert.False(t, info.Partial)
		assert.False(t, info.Incomplete)
	})

	t.Run("fills in the missing line", func(t *testing.T) {
		info := &StackInfo{Frames: []Frame{{URL: "http://x/a.js", Function: "?"}}}
		assert.False(t, AugmentFirstFrame(info, "http://x/a.js", 10))
		require.Len(t, info.Frames, 1)
		assert.Equal(t, 10, *info.Frames[0].Line)
		assert.False(t, info.Partial)
	})

	t.Run("prepends a synthesized frame", func(t *testing.T) {
		info := &StackInfo{Frames: []Frame{{URL: "http://x/b.js", Line: intPtr(3), Function: "bar"}}}
		assert.True(t, AugmentFirstFrame(info, "http://x/a.js", 10))
		require.Len(t, info.Frames, 2)
		assert.Equal(t, "http://x/a.js", info.Frames[0].URL)
		assert.True(t, info.Partial)
	})
}

func TestFromGlobalError(t *testing.T) {
	info := newTestAnalyzer().FromGlobalError("Uncaught TypeError: x is undefined", "http://x/a.js", 3, 7)

	assert.Equal(t, "TypeError", info.Type)
	assert.Equal(t, "x is undefined", info.Message)
	require.Len(t, info.Frames, 1)
	assert.Equal(t, "http://x/a.js", info.Frames[0].URL)
	assert.Equal(t, "?", info.Frames[0].Function)
	assert.Equal(t, 3, *info.Frames[0].Line)
	assert.Equal(t, 7, *info.Frames[0].Column)
	require.NotNil(t, info.Line)
	assert.Equal(t, 3, *info.Line)
}

func TestSplitMessage(t *testing.T) {
	cases := map[string][2]string{
		"Script error.":                     {"", "Script error."},
		"Uncaught exception: Error: boom":   {"Error", "boom"},
		"uncaught RangeError: too deep":     {"RangeError", "too deep"},
		"InternalError: too much recursion": {"InternalError", "too much recursion"},
		"CustomError: not a builtin class":  {"", "CustomError: not a builtin class"},
	}
	for message, want := range cases {
		typ, msg := SplitMessage(message)
		assert.Equal(t, want[0], typ, message)
		assert.Equal(t, want[1], msg, message)
	}
}

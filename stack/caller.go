package stack

import (
	"path/filepath"
	"runtime"
)

// Caller is one function in a caller chain, the way `arguments.callee.caller`
// exposes it on engines without stack strings.
type Caller interface {
	// Name is the function's own name property, possibly empty.
	Name() string
	// Source is the function's source text. It also identifies the function
	// for the recursion guard.
	Source() string
	// Caller returns the next function up the chain or nil.
	Caller() Caller
}

// Locator is implemented by callers that know where they are.
type Locator interface {
	Location() (url string, line int, ok bool)
}

type runtimeFrame struct {
	Func string
	Path string
	Line int
}

type runtimeChain struct {
	frames []runtimeFrame
	i      int
}

// RuntimeCallers exposes the Go call stack as a caller chain. skip 0 starts
// at the function calling RuntimeCallers.
func RuntimeCallers(skip int) Caller {
	frames := make([]runtimeFrame, 0, 10)
	for i := skip + 1; ; i++ {
		pc, path, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		name := ""
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
		// stop at the scheduler entry
		if name == "runtime.goexit" || name == "runtime.main" {
			break
		}
		frames = append(frames, runtimeFrame{Func: name, Path: path, Line: line})
	}

	if len(frames) == 0 {
		return nil
	}
	return &runtimeChain{frames: frames}
}

func (c *runtimeChain) Name() string {
	return c.frames[c.i].Func
}

func (c *runtimeChain) Source() string {
	return "func " + c.frames[c.i].Func + "() {}"
}

func (c *runtimeChain) Caller() Caller {
	if c.i+1 >= len(c.frames) {
		return nil
	}
	return &runtimeChain{frames: c.frames, i: c.i + 1}
}

func (c *runtimeChain) Location() (string, int, bool) {
	f := c.frames[c.i]
	if f.Path == "" {
		return "", 0, false
	}
	return "file://" + filepath.ToSlash(f.Path), f.Line, true
}

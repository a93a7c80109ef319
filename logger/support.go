package logger

import (
	"bufio"
	"io"
	"os"
	"runtime"
)

// Trace returns the call stack above the caller of Trace. skip 0 starts at
// the function calling Trace.
func Trace(skip int) []Frame {
	frames := make([]Frame, 0, 10)
	for i := skip + 1; ; i++ {
		pc, path, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		name := ""
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
		frames = append(frames, Frame{
			Func: name,
			Line: line,
			Path: path,
		})
	}

	return frames
}

func getSource(f string, line int) []string {
	file, err := os.Open(f)
	if err != nil {
		return nil
	}
	defer file.Close()

	start := line - 4
	if start < 0 {
		start = 0
	}
	end := line + 2
	scanner := bufio.NewScanner(file)
	lines := make([]string, 0, 7)

	for i := 0; scanner.Scan() && i <= end; i++ {
		if i >= start {
			lines = append(lines, scanner.Text())
		}
	}

	return lines
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NopCloser returns a WriteCloser with a no-op Close wrapping w.
func NopCloser(w io.Writer) io.WriteCloser {
	return nopCloser{w}
}

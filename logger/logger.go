package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const version = "go-tracer/v0.1.0"

// A Logger represents an active logging object that generates json lines of
// output to an [io.Writer]. Each logging operation makes a single call to
// the Writer's Write method. A Logger can be used simultaneously from
// multiple goroutines; it guarantees to serialize access to the Writer.
type Logger struct {
	prefix     string
	level      uint32
	mu         sync.Mutex
	writer     io.WriteCloser
	levels     []string
	bufferPool sync.Pool
	source     bool
	color      bool
}

type (
	Lvl  uint8
	JSON map[string]any
)

const (
	DEBUG Lvl = iota + 1
	INFO
	WARN
	ERROR
	OFF
)

// New create new logger instance
func New(writer io.WriteCloser, prefix string) *Logger {
	l := &Logger{
		level:  uint32(INFO),
		prefix: prefix,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 2048))
			},
		},
	}
	l.SetOutput(writer)
	return l
}

// NewStdout creates a logger writing to a colorable stdout.
func NewStdout(prefix string) *Logger {
	l := New(NopCloser(colorable.NewColorableStdout()), prefix)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		l.EnableColor()
	}
	return l
}

// Discard creates a logger that drops everything.
func Discard() *Logger {
	l := New(NopCloser(io.Discard), "")
	l.SetLevel(OFF)
	return l
}

func (l *Logger) Close() error {
	return l.writer.Close()
}

func (l *Logger) initLevels() {
	l.levels = []string{
		"-",
		"DEBUG",
		"INFO",
		"WARN",
		"ERROR",
		"",
	}
	if !l.color {
		return
	}

	blue := color.New(color.FgBlue).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	l.levels[DEBUG] = blue(l.levels[DEBUG])
	l.levels[INFO] = green(l.levels[INFO])
	l.levels[WARN] = yellow(l.levels[WARN])
	l.levels[ERROR] = red(l.levels[ERROR])
}

// EnableColor colours the level names.
func (l *Logger) EnableColor() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = true
	l.initLevels()
}

// DisableColor prints plain level names.
func (l *Logger) DisableColor() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = false
	l.initLevels()
}

// Level returns the current logger level.
func (l *Logger) Level() Lvl {
	return Lvl(atomic.LoadUint32(&l.level))
}

// SetLevel sets the logger level.
func (l *Logger) SetLevel(level Lvl) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// SetSource adds the surrounding source lines of the call site to every entry.
func (l *Logger) SetSource(enabled bool) {
	l.source = enabled
}

// SetOutput sets the output destination for the logger. Colours are turned
// off unless the destination is a terminal.
func (l *Logger) SetOutput(w io.WriteCloser) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writer = w
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		l.color = false
	}
	l.initLevels()
}

// Print calls l.Output to print to the logger.
func (l *Logger) Print(i ...any) {
	l.log(0, i...)
}

// Debug calls l.Output to print to the logger.
func (l *Logger) Debug(i ...any) {
	l.log(DEBUG, i...)
}

// Debugf calls l.Output to print to the logger with a format.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(DEBUG, format, args...)
}

// Info calls l.Output to print to the logger info level.
func (l *Logger) Info(i ...any) {
	l.log(INFO, i...)
}

// Infof calls l.Output to print to the logger info level with a format.
func (l *Logger) Infof(format string, args ...any) {
	l.logf(INFO, format, args...)
}

// Warn calls l.Output to print to the logger warn level.
func (l *Logger) Warn(i ...any) {
	l.log(WARN, i...)
}

// Warnf calls l.Output to print to the logger warn level with a format.
func (l *Logger) Warnf(format string, args ...any) {
	l.logf(WARN, format, args...)
}

// Error calls l.Output to print to the logger error level.
func (l *Logger) Error(i ...any) {
	l.log(ERROR, i...)
}

// Errorf calls l.Output to print to the logger error level with a format.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(ERROR, format, args...)
}

func (l *Logger) log(level Lvl, d ...any) {
	var (
		msg []byte
		err error
	)

	if len(d) == 1 {
		if str, ok := d[0].(string); ok {
			msg = []byte(str)
		} else if msg, err = json.Marshal(d[0]); err != nil {
			return
		}
	}

	if len(d) > 1 {
		msg, err = json.Marshal(d)
		if err != nil {
			return
		}
	}

	l.output(level, string(msg))
}

func (l *Logger) logf(level Lvl, format string, args ...any) {
	l.output(level, fmt.Sprintf(format, args...))
}

func (l *Logger) output(level Lvl, message string) {
	// Print has no level and is only silenced by OFF
	if lvl := l.Level(); lvl == OFF || (level != 0 && level < lvl) {
		return
	}

	buf := l.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		l.bufferPool.Put(buf)
	}()

	// Print/Debugf/... -> log/logf -> output
	pc, file, line, _ := runtime.Caller(3)
	funcName := ""
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcName = fn.Name()
	}

	entry := Log{
		Time:    time.Now(),
		Prefix:  l.prefix,
		Message: message,
		Agent:   version,
		Source: FrameWithCode{
			Frame: Frame{
				Path: file,
				Line: line,
				Func: funcName,
			},
		},
	}
	if l.source {
		entry.Source.Code = getSource(file, line)
	}
	if level >= ERROR {
		entry.Trace = Trace(3)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Level = l.levels[level]
	if err := json.NewEncoder(buf).Encode(entry); err != nil {
		return
	}

	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())

	if _, err := l.writer.Write(data); err != nil {
		return
	}
}

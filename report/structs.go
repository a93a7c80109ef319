package report

import "github.com/lognitor/go-tracer/breadcrumbs"

// Frame is a stack frame as the collector receives it.
type Frame struct {
	Source   string `json:"source,omitempty"`
	Line     *int   `json:"lineno,omitempty"`
	Column   *int   `json:"colno,omitempty"`
	Function string `json:"function,omitempty"`
}

// StackTrace holds frames outermost first; the throw site is last.
type StackTrace struct {
	Frames []Frame `json:"frames"`
}

type CatchedException struct {
	Type       string     `json:"type,omitempty"`
	Message    string     `json:"message"`
	Stacktrace StackTrace `json:"stacktrace"`
}

// Environment is the static page snapshot sent with every report. The
// collector expects the screenHeigth spelling.
type Environment struct {
	ScreenWidth  int    `json:"screenWidth"`
	ScreenHeight int    `json:"screenHeigth"`
	UserAgent    string `json:"userAgent"`
	Language     string `json:"language"`
}

// Report is one exception report.
type Report struct {
	URL         string              `json:"url"`
	Title       string              `json:"title"`
	Environment Environment         `json:"environment"`
	Exception   *CatchedException   `json:"exception,omitempty"`
	Version     string              `json:"version"`
	APIKey      string              `json:"apiKey"`
	Timestamp   int64               `json:"timestamp"`
	GUID        string              `json:"guid"`
	Breadcrumbs []breadcrumbs.Crumb `json:"breadcrumbs"`
}

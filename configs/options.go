package configs

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	DefaultExceptionURL   = "http://localhost:3001/tracer/error"
	DefaultPerformanceURL = "http://localhost:3001/api/perf/create"
	DefaultReleaseStage   = "production"
	DefaultMaxStackDepth  = 10
	DefaultMaxBreadcrumbs = 100
)

// AutoBreadcrumbs toggles each breadcrumb source.
type AutoBreadcrumbs struct {
	DOM      bool `mapstructure:"dom" json:"dom"`
	XHR      bool `mapstructure:"xhr" json:"xhr"`
	Location bool `mapstructure:"location" json:"location"`
	Console  bool `mapstructure:"console" json:"console"`
}

// Options is the flat options object a page passes to the tracer.
type Options struct {
	APIKey          string          `mapstructure:"apiKey" json:"apiKey"`
	ExceptionURL    string          `mapstructure:"exceptionUrl" json:"exceptionUrl"`
	ReportURL       string          `mapstructure:"reportUrl" json:"reportUrl,omitempty"`
	PerformanceURL  string          `mapstructure:"performanceUrl" json:"performanceUrl"`
	IgnoreErrors    []Pattern       `mapstructure:"ignoreErrors" json:"-"`
	IgnoreURLs      []Pattern       `mapstructure:"ignoreUrls" json:"-"`
	AutoBreadcrumbs AutoBreadcrumbs `mapstructure:"autoBreadcrumbs" json:"autoBreadcrumbs"`
	ReleaseStage    string          `mapstructure:"releaseStage" json:"releaseStage"`
	// CatchAjax and CatchConsole are accepted for compatibility; the
	// autoBreadcrumbs switches decide what is recorded.
	CatchAjax      bool   `mapstructure:"catchAjax" json:"catchAjax"`
	CatchConsole   bool   `mapstructure:"catchConsole" json:"catchConsole"`
	DisableLog     bool   `mapstructure:"disableLog" json:"disableLog"`
	Version        string `mapstructure:"version" json:"version"`
	MaxStackDepth  int    `mapstructure:"maxStackDepth" json:"maxStackDepth"`
	RepeatReport   bool   `mapstructure:"repeatReport" json:"repeatReport"`
	MaxBreadcrumbs int    `mapstructure:"maxBreadcrumbs" json:"maxBreadcrumbs"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ExceptionURL:   DefaultExceptionURL,
		PerformanceURL: DefaultPerformanceURL,
		AutoBreadcrumbs: AutoBreadcrumbs{
			DOM:      true,
			XHR:      true,
			Location: true,
			Console:  false,
		},
		ReleaseStage:   DefaultReleaseStage,
		CatchAjax:      true,
		CatchConsole:   true,
		DisableLog:     false,
		MaxStackDepth:  DefaultMaxStackDepth,
		RepeatReport:   false,
		MaxBreadcrumbs: DefaultMaxBreadcrumbs,
	}
}

// Decode merges a raw options object over the defaults. Keys it does not
// recognize are returned so the caller can warn about them.
func Decode(raw map[string]any) (Options, []string, error) {
	opts := DefaultOptions()

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: patternHook,
		Metadata:   &md,
		Result:     &opts,
	})
	if err != nil {
		return Options{}, nil, fmt.Errorf("failed to create options decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return Options{}, nil, fmt.Errorf("%w: %s", ErrInvalidOption, err)
	}

	// reportUrl is the older name of exceptionUrl
	if _, ok := raw["exceptionUrl"]; !ok && opts.ReportURL != "" {
		opts.ExceptionURL = opts.ReportURL
	}

	return opts, md.Unused, nil
}

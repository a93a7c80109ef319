package configs

import (
	"fmt"
	"net/url"
	"regexp"
)

// Config is the normalized tracer configuration. It never changes after
// New returns.
type Config struct {
	opts         Options
	exceptionURL *url.URL
	ignoreErrors *regexp.Regexp
	ignoreURLs   *regexp.Regexp
}

// New validates opts and compiles the ignore patterns.
func New(opts Options) (*Config, error) {
	u, err := url.Parse(opts.ExceptionURL)
	if err != nil || opts.ExceptionURL == "" {
		return nil, fmt.Errorf("%w: invalid exception url: %s", ErrInvalidURL, opts.ExceptionURL)
	}
	if _, err := url.Parse(opts.PerformanceURL); err != nil {
		return nil, fmt.Errorf("%w: invalid performance url: %s", ErrInvalidURL, opts.PerformanceURL)
	}
	if opts.MaxStackDepth < 0 {
		return nil, fmt.Errorf("%w: maxStackDepth %d", ErrInvalidOption, opts.MaxStackDepth)
	}
	if opts.MaxBreadcrumbs < 0 {
		return nil, fmt.Errorf("%w: maxBreadcrumbs %d", ErrInvalidOption, opts.MaxBreadcrumbs)
	}

	ignoreErrors := make([]Pattern, 0, len(opts.IgnoreErrors)+len(scriptErrors))
	ignoreErrors = append(ignoreErrors, opts.IgnoreErrors...)
	ignoreErrors = append(ignoreErrors, scriptErrors...)

	errs, err := JoinPatterns(ignoreErrors)
	if err != nil {
		return nil, fmt.Errorf("ignoreErrors: %w", err)
	}
	urls, err := JoinPatterns(opts.IgnoreURLs)
	if err != nil {
		return nil, fmt.Errorf("ignoreUrls: %w", err)
	}

	opts.IgnoreErrors = append([]Pattern(nil), opts.IgnoreErrors...)
	opts.IgnoreURLs = append([]Pattern(nil), opts.IgnoreURLs...)

	return &Config{
		opts:         opts,
		exceptionURL: u,
		ignoreErrors: errs,
		ignoreURLs:   urls,
	}, nil
}

// FromMap decodes raw over the defaults and normalizes the result.
func FromMap(raw map[string]any) (*Config, []string, error) {
	opts, unused, err := Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, unused, nil
}

// IgnoresError reports whether message matches ignoreErrors.
func (c *Config) IgnoresError(message string) bool {
	return c.ignoreErrors != nil && c.ignoreErrors.MatchString(message)
}

// IgnoresURL reports whether u matches ignoreUrls. With no ignoreUrls
// nothing matches.
func (c *Config) IgnoresURL(u string) bool {
	return c.ignoreURLs != nil && c.ignoreURLs.MatchString(u)
}

// Options returns a copy of the options the config was built from.
func (c *Config) Options() Options {
	opts := c.opts
	opts.IgnoreErrors = append([]Pattern(nil), c.opts.IgnoreErrors...)
	opts.IgnoreURLs = append([]Pattern(nil), c.opts.IgnoreURLs...)
	return opts
}

func (c *Config) APIKey() string                   { return c.opts.APIKey }
func (c *Config) ExceptionURL() string             { return c.exceptionURL.String() }
func (c *Config) PerformanceURL() string           { return c.opts.PerformanceURL }
func (c *Config) AutoBreadcrumbs() AutoBreadcrumbs { return c.opts.AutoBreadcrumbs }
func (c *Config) ReleaseStage() string             { return c.opts.ReleaseStage }
func (c *Config) CatchAjax() bool                  { return c.opts.CatchAjax }
func (c *Config) CatchConsole() bool               { return c.opts.CatchConsole }
func (c *Config) DisableLog() bool                 { return c.opts.DisableLog }
func (c *Config) Version() string                  { return c.opts.Version }
func (c *Config) MaxStackDepth() int               { return c.opts.MaxStackDepth }
func (c *Config) RepeatReport() bool               { return c.opts.RepeatReport }
func (c *Config) MaxBreadcrumbs() int              { return c.opts.MaxBreadcrumbs }

package stack

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-sourcemap/sourcemap"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MapFetcher loads the source map for a script URL.
type MapFetcher interface {
	FetchMap(ctx context.Context, scriptURL string) (mapURL string, data []byte, err error)
}

// HTTPMapFetcher fetches "<script>.map" next to the script.
type HTTPMapFetcher struct {
	Client *http.Client
}

// FetchMap implements MapFetcher.
func (f HTTPMapFetcher) FetchMap(ctx context.Context, scriptURL string) (string, []byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: time.Second * 3}
	}

	mapURL := scriptURL + ".map"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mapURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("invalid source map url %s: %w", mapURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch source map: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("failed to fetch source map %s: status %d", mapURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read source map: %w", err)
	}
	return mapURL, data, nil
}

// FileMapFetcher reads source maps from disk. Files maps script URLs to map
// paths; Default is used for any other script.
type FileMapFetcher struct {
	Files   map[string]string
	Default string
}

// FetchMap implements MapFetcher.
func (f FileMapFetcher) FetchMap(_ context.Context, scriptURL string) (string, []byte, error) {
	path, ok := f.Files[scriptURL]
	if !ok {
		path = f.Default
	}
	if path == "" {
		return "", nil, fmt.Errorf("no source map for %s", scriptURL)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read source map: %w", err)
	}
	return "", data, nil
}

// Symbolicator maps minified frames back to their original sources.
type Symbolicator struct {
	fetcher MapFetcher
	cache   *lru.Cache[string, *sourcemap.Consumer]
}

// NewSymbolicator creates a Symbolicator keeping up to size parsed maps.
func NewSymbolicator(fetcher MapFetcher, size int) (*Symbolicator, error) {
	cache, err := lru.New[string, *sourcemap.Consumer](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create source map cache: %w", err)
	}
	return &Symbolicator{fetcher: fetcher, cache: cache}, nil
}

// Symbolicate returns a copy of frames with every mappable frame rewritten to
// its original location. Frames without a map or a position are kept as is.
func (s *Symbolicator) Symbolicate(ctx context.Context, frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, frame := range frames {
		out[i] = s.symbolicateFrame(ctx, frame)
	}
	return out
}

func (s *Symbolicator) symbolicateFrame(ctx context.Context, frame Frame) Frame {
	if frame.URL == "" || frame.Line == nil || frame.Column == nil {
		return frame
	}

	consumer, err := s.consumer(ctx, frame.URL)
	if err != nil {
		return frame
	}

	// the consumer takes 1-based lines and 0-based columns
	file, name, line, col, ok := consumer.Source(*frame.Line, *frame.Column-1)
	if !ok || file == "" || line <= 0 {
		return frame
	}

	mapped := Frame{
		URL:      file,
		Function: frame.Function,
		Args:     frame.Args,
		Line:     intPtr(line),
		Column:   intPtr(col + 1),
	}
	if name != "" {
		mapped.Function = name
	}
	return mapped
}

func (s *Symbolicator) consumer(ctx context.Context, scriptURL string) (*sourcemap.Consumer, error) {
	if c, ok := s.cache.Get(scriptURL); ok {
		return c, nil
	}

	mapURL, data, err := s.fetcher.FetchMap(ctx, scriptURL)
	if err != nil {
		return nil, err
	}
	c, err := sourcemap.Parse(mapURL, data)
	if err != nil {
		return nil, fmt.Errorf("invalid source map for %s: %w", scriptURL, err)
	}
	s.cache.Add(scriptURL, c)
	return c, nil
}

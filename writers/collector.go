package writers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	apiKeyHeader = "X-Api-Key"
	reportMethod = "/tracer.Collector/Report"
)

type job struct {
	url       string
	body      []byte
	onSuccess func()
	onError   func(err error)
}

// CollectorWriter is a writer that ships payloads to a collector
type CollectorWriter struct {
	ctx    context.Context
	in     chan job
	done   chan struct{}
	host   string
	apiKey string

	http        *http.Client
	grpc        *grpc.ClientConn
	grpcTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

var _ Transport = (*CollectorWriter)(nil)

// NewCollectorWriter creates a new io.Writer and Transport.
// Attention! Creating this writer launches the worker listening channel.
// Avoid unnecessary creation operations!
func NewCollectorWriter(ctx context.Context, config ConfigCollectorInterface) (*CollectorWriter, error) {
	buffer := config.Buffer()
	if buffer < 0 {
		buffer = 0
	}

	w := &CollectorWriter{
		ctx:    ctx,
		in:     make(chan job, buffer),
		done:   make(chan struct{}),
		host:   config.Host(),
		apiKey: config.ApiKey(),
		http: &http.Client{
			Timeout: config.HttpTimeout(),
		},
		grpcTimeout: config.GrpcTimeout(),
	}

	if config.IsGrpc() {
		if err := w.initGRPC(config.GrpcHost()); err != nil {
			return nil, err
		}
	}

	go w.worker()

	return w, nil
}

func (w *CollectorWriter) initGRPC(host string) error {
	conn, err := grpc.DialContext(w.ctx, host,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return fmt.Errorf("failed to connect GRPC: %w", err)
	}

	w.grpc = conn

	return nil
}

// Write queues p as a payload for the collector host
func (w *CollectorWriter) Write(p []byte) (n int, err error) {
	b := make([]byte, len(p))
	copy(b, p)

	if err := w.enqueue(job{url: w.host, body: b}); err != nil {
		return 0, err
	}

	return len(p), nil
}

// MakeRequest queues req. An empty req.URL means the collector host.
func (w *CollectorWriter) MakeRequest(req Request) {
	body, err := json.Marshal(req.Data)
	if err != nil {
		req.fail(fmt.Errorf("failed to marshal payload: %w", err))
		return
	}

	url := req.URL
	if url == "" {
		url = w.host
	}

	if err := w.enqueue(job{url: url, body: body, onSuccess: req.OnSuccess, onError: req.OnError}); err != nil {
		req.fail(err)
	}
}

// Close closes the channel, waits for the queued payloads and closes the
// connection
func (w *CollectorWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterIsClosed
	}
	w.closed = true
	close(w.in)
	w.mu.Unlock()

	<-w.done

	if w.grpc != nil {
		return w.grpc.Close()
	}

	return nil
}

func (w *CollectorWriter) enqueue(j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWriterIsClosed
	}

	w.in <- j

	return nil
}

func (w *CollectorWriter) worker() {
	defer close(w.done)

	for j := range w.in {
		if err := w.send(j); err != nil {
			if j.onError != nil {
				j.onError(err)
			}
			continue
		}
		if j.onSuccess != nil {
			j.onSuccess()
		}
	}
}

func (w *CollectorWriter) send(j job) error {
	if w.grpc != nil {
		return w.sendGRPC(j)
	}

	return w.sendHTTP(j)
}

func (w *CollectorWriter) sendHTTP(j job) error {
	req, err := http.NewRequestWithContext(w.ctx, http.MethodPost, j.url, bytes.NewReader(j.body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, w.apiKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}

func (w *CollectorWriter) sendGRPC(j job) error {
	ctx, cancel := context.WithTimeout(w.ctx, w.grpcTimeout)
	defer cancel()

	ctx = metadata.AppendToOutgoingContext(ctx, apiKeyHeader, w.apiKey)

	var reply json.RawMessage
	if err := w.grpc.Invoke(ctx, reportMethod, json.RawMessage(j.body), &reply); err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}

	return nil
}

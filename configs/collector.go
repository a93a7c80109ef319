package configs

import (
	"fmt"
	"net/url"
	"time"
)

// Collector is the endpoint a writers.CollectorWriter ships payloads to.
type Collector struct {
	httpHost    *url.URL
	httpTimeout time.Duration
	grpcHost    string
	grpcTimeout time.Duration
	apiKey      string
	grpc        bool
	buffer      int
}

// NewCollector creates a new Collector config. grpcHost is a host:port
// target and may be empty when gRPC is never enabled.
func NewCollector(grpcHost, httpHost, apiKey string) (*Collector, error) {
	u, err := url.Parse(httpHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid http host: %s", ErrInvalidURL, httpHost)
	}

	if grpcHost != "" {
		if _, err := url.Parse("grpc://" + grpcHost); err != nil {
			return nil, fmt.Errorf("%w: invalid grpc host: %s", ErrInvalidURL, grpcHost)
		}
	}

	return &Collector{
		httpHost:    u,
		httpTimeout: time.Second * 3,
		apiKey:      apiKey,
		grpcHost:    grpcHost,
		grpcTimeout: time.Second * 3,
		grpc:        false,
		buffer:      1000,
	}, nil
}

// EnableGrpc switches the collector to gRPC.
// Attention! The writer reads this once, recreate the writer after enabling.
func (c *Collector) EnableGrpc() {
	c.grpc = true
}

// SetHttpTimeout sets timeout for the HTTP requests
func (c *Collector) SetHttpTimeout(timeout time.Duration) {
	c.httpTimeout = timeout
}

// SetGrpcTimeout sets timeout for the gRPC requests
func (c *Collector) SetGrpcTimeout(timeout time.Duration) {
	c.grpcTimeout = timeout
}

// SetBuffer sets how many payloads the writer queues before Write blocks.
func (c *Collector) SetBuffer(size int) {
	c.buffer = size
}

// Host returns the http endpoint of the collector
func (c *Collector) Host() string {
	return c.httpHost.String()
}

// HttpTimeout returns the http requests timeout
func (c *Collector) HttpTimeout() time.Duration {
	return c.httpTimeout
}

// ApiKey returns the key sent with every payload
func (c *Collector) ApiKey() string {
	return c.apiKey
}

// IsGrpc returns if the collector is using grpc
func (c *Collector) IsGrpc() bool {
	return c.grpc
}

// GrpcHost returns the grpc target of the collector
func (c *Collector) GrpcHost() string {
	return c.grpcHost
}

// GrpcTimeout returns the grpc requests timeout
func (c *Collector) GrpcTimeout() time.Duration {
	return c.grpcTimeout
}

// Buffer returns the writer queue size
func (c *Collector) Buffer() int {
	return c.buffer
}

package writers

import "time"

type ConfigCollectorInterface interface {
	Host() string
	GrpcHost() string
	ApiKey() string
	IsGrpc() bool
	HttpTimeout() time.Duration
	GrpcTimeout() time.Duration
	Buffer() int
}

// Transport delivers one payload. It never blocks on the network and
// reports the outcome through the request callbacks only.
type Transport interface {
	MakeRequest(req Request)
}

// Request is one payload to POST as JSON.
type Request struct {
	URL       string
	Data      any
	OnSuccess func()
	OnError   func(err error)
}

func (r Request) succeed() {
	if r.OnSuccess != nil {
		r.OnSuccess()
	}
}

func (r Request) fail(err error) {
	if r.OnError != nil {
		r.OnError(err)
	}
}

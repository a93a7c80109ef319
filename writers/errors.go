package writers

import "errors"

var (
	ErrWriterIsClosed   = errors.New("collector writer is closed")
	ErrNoCORS           = errors.New("no CORS capable request object")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrXDomainRequest   = errors.New("XDomainRequest failed")
)

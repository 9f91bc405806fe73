package transport

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint is returned when the client has no endpoint URL.
var ErrNoEndpoint = errors.New("transport: endpoint is required")

// TransportError wraps a failure to reach the endpoint at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response. Message is the server's `error`
// field, else its `details` field, else a generic "Server error: N".
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: status %d: %s", e.Status, e.Message)
}

// ClientError reports whether the server rejected the request itself (4xx).
func (e *StatusError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// MalformedResponseError reports a response body that is not a JSON object.
type MalformedResponseError struct {
	Status int
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("transport: malformed response (status %d): %v", e.Status, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

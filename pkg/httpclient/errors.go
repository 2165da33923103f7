package httpclient

import (
	"errors"
	"fmt"
)

// ErrNotRecorded is wrapped by ReplayTransport when no exchange matches.
var ErrNotRecorded = errors.New("httpclient: exchange not recorded")

// TransportError reports an exchange that could not be completed
// (DNS, connect, TLS, cancellation, missing recording).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request to %s failed: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is or wraps a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

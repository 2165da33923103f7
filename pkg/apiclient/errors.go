package apiclient

import (
	"errors"
	"fmt"

	"github.com/samvad-hq/endpointkit/pkg/httpclient"
)

// TransportError is produced by the transport when an exchange cannot be
// completed. The client returns it unchanged.
type TransportError = httpclient.TransportError

var (
	// ErrCanceled is returned by Future.Wait after Future.Cancel.
	ErrCanceled = errors.New("apiclient: request canceled")

	ErrFieldNotFound   = errors.New("field not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotContainer    = errors.New("value is neither an object nor an array")
	ErrNotArray        = errors.New("value is not an array")
	ErrEmptySegment    = errors.New("empty field path segment")
)

// HTTPStatusError reports a completed exchange with a non-2xx status.
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s request to %s returned status code %d: %s",
		e.Method, e.URL, e.StatusCode, summarizeBody(e.Body))
}

// DecodeError reports a response body, or the element selected by a field
// path, that does not match the requested model.
type DecodeError struct {
	// Path is the field path being decoded; empty means the document root.
	Path string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "$"
	}
	return fmt.Sprintf("decode response at %s: %v", path, e.Err)
}

// Unwrap returns the structural mismatch detail.
func (e *DecodeError) Unwrap() error { return e.Err }

// IsHTTPStatusError reports whether err is or wraps an *HTTPStatusError.
func IsHTTPStatusError(err error) bool {
	var se *HTTPStatusError
	return errors.As(err, &se)
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// StatusCode returns the status code carried by err, or 0.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IgnoreStatusCodes returns nil when err is an *HTTPStatusError with one of
// codes, and err otherwise.
func IgnoreStatusCodes(err error, codes ...int) error {
	code := StatusCode(err)
	if code == 0 {
		return err
	}
	for _, c := range codes {
		if c == code {
			return nil
		}
	}
	return err
}

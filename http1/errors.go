// Package http1 implements the hand-rolled HTTP/1.1 wire protocol: request-line
// and header parsing, Content-Length/chunked body ingestion, limit enforcement,
// cookies, and response serialization.
package http1

import "errors"

// Sentinel errors for the parser and response writer. Callers use errors.Is to
// classify a failure into one of the §7 error kinds and pick a status code.
var (
	// ErrConnectionClosed is returned when EOF is hit before any bytes of a
	// new request arrive. This is a graceful close, not a protocol error.
	ErrConnectionClosed = errors.New("http1: connection closed")

	// ErrBadRequest covers malformed request lines, headers, and chunked
	// framing.
	ErrBadRequest = errors.New("http1: bad request")

	// ErrRequestLineTooLong is returned when the request line exceeds
	// Config.MaxRequestLineLength.
	ErrRequestLineTooLong = errors.New("http1: request line too long")

	// ErrTooManyHeaders is returned when the header count exceeds
	// Config.MaxHeaderCount.
	ErrTooManyHeaders = errors.New("http1: too many headers")

	// ErrHeaderTooLarge is returned when a single header value exceeds
	// Config.MaxHeaderSize.
	ErrHeaderTooLarge = errors.New("http1: header too large")

	// ErrHeadersSizeTooLarge is returned when the running total of header
	// bytes exceeds Config.MaxTotalHeadersSize.
	ErrHeadersSizeTooLarge = errors.New("http1: total headers size too large")

	// ErrRequestBodyTooLarge is returned when a request body (declared or
	// streamed) exceeds Config.MaxRequestBodySize.
	ErrRequestBodyTooLarge = errors.New("http1: request body too large")

	// ErrUnsupportedMediaType is returned by body decoders that cannot
	// handle the declared Content-Type.
	ErrUnsupportedMediaType = errors.New("http1: unsupported media type")

	// ErrHeadersAlreadyWritten names the state in which headers have already
	// been written. ResponseWriter.WriteHeader does not return it: repeat
	// calls are silently ignored and only the first one takes effect.
	ErrHeadersAlreadyWritten = errors.New("http1: headers already written")
)

// LimitError wraps one of the size-limit sentinels with the status code a
// Connection Runtime should report to the client for it.
type LimitError struct {
	Err    error
	Status int
}

func (e *LimitError) Error() string { return e.Err.Error() }
func (e *LimitError) Unwrap() error { return e.Err }

func newLimitError(err error, status int) *LimitError {
	return &LimitError{Err: err, Status: status}
}

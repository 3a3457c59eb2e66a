package http1

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mirainet/spider/internal/bufpool"
)

// BodyKind discriminates the shape of a Response body as a sum type rather
// than an interface{}-typed field with a runtime type switch.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyString
	BodyBytes
	BodyFile
	BodyStream
)

// StreamFunc is the producer closure for a streaming response body. It
// writes directly into w and is responsible for any framing it needs
// (typically chunked or SSE formatting).
type StreamFunc func(w io.Writer) error

// Response is constructed by a handler and consumed exactly once by
// ResponseWriter.
type Response struct {
	Status  int
	Header  *Header
	Kind    BodyKind
	Str     string
	Bytes   []byte
	File    *os.File
	Stream  StreamFunc
}

// NewResponse returns a Response with status 200, no body, and an empty
// header set.
func NewResponse() *Response {
	return &Response{Status: 200, Header: NewHeader()}
}

// ResponseWriter serializes a Response (or an incrementally-built one) to an
// output byte sink per §4.3: status line, header-presence-of-Content-Length
// injection, headers in insertion order, blank line, body, flush.
type ResponseWriter struct {
	w             io.Writer
	status        int
	header        *Header
	statusWritten bool
	headerWritten bool
	bytesWritten  int64
}

// NewResponseWriter wraps w with status defaulted to 200.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{w: w, status: 200, header: NewHeader()}
}

// Header returns the header set to be written. It must be mutated before the
// first Write/WriteHeader call.
func (rw *ResponseWriter) Header() *Header { return rw.header }

// WriteHeader sets the status code. Only the first call takes effect; later
// calls are no-ops, matching net/http's own WriteHeader contract.
func (rw *ResponseWriter) WriteHeader(status int) {
	if rw.statusWritten {
		return
	}
	rw.status = status
	rw.statusWritten = true
}

// Status returns the status code that will be (or was) written.
func (rw *ResponseWriter) Status() int { return rw.status }

// HeaderWritten reports whether the status line and headers have already
// been flushed, so callers recovering from a handler panic know whether a
// fallback error status can still be sent.
func (rw *ResponseWriter) HeaderWritten() bool { return rw.headerWritten }

// BytesWritten returns the number of body bytes written so far.
func (rw *ResponseWriter) BytesWritten() int64 { return rw.bytesWritten }

// Write writes body bytes, flushing headers first if they have not been
// flushed yet (an implicit WriteHeader(200)).
func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if !rw.headerWritten {
		if err := rw.flushHeader(len(p), false); err != nil {
			return 0, err
		}
	}
	n, err := rw.w.Write(p)
	rw.bytesWritten += int64(n)
	return n, err
}

// WriteResponse serializes a full Response in one call: status line,
// Content-Length injection when the body has a known length, headers, blank
// line, and body (per body Kind).
func (rw *ResponseWriter) WriteResponse(resp *Response) error {
	rw.status = resp.Status
	rw.header = resp.Header
	if rw.header == nil {
		rw.header = NewHeader()
	}

	knownLen := -1
	switch resp.Kind {
	case BodyString:
		knownLen = len(resp.Str)
	case BodyBytes:
		knownLen = len(resp.Bytes)
	}
	if !rw.header.Has("Content-Type") && resp.Kind != BodyNone {
		rw.header.Set("Content-Type", defaultContentType)
	}
	if err := rw.flushHeader(knownLen, resp.Kind == BodyStream); err != nil {
		return err
	}

	switch resp.Kind {
	case BodyNone:
		// nothing to write
	case BodyString:
		if _, err := rw.writeRaw([]byte(resp.Str)); err != nil {
			return err
		}
	case BodyBytes:
		if _, err := rw.writeRaw(resp.Bytes); err != nil {
			return err
		}
	case BodyFile:
		n, err := io.Copy(rw.w, resp.File)
		rw.bytesWritten += n
		if err != nil {
			return err
		}
	case BodyStream:
		if resp.Stream != nil {
			if err := resp.Stream(rw); err != nil {
				return err
			}
		}
	}
	return rw.Flush()
}

func (rw *ResponseWriter) writeRaw(p []byte) (int, error) {
	n, err := rw.w.Write(p)
	rw.bytesWritten += int64(n)
	return n, err
}

// flushHeader writes the status line and headers. knownLen >= 0 injects a
// Content-Length header when one is not already present and the body is not
// streaming; streaming bodies are responsible for their own framing.
func (rw *ResponseWriter) flushHeader(knownLen int, streaming bool) error {
	if rw.headerWritten {
		return nil
	}
	rw.headerWritten = true

	if !streaming && knownLen >= 0 && !rw.header.Has("Content-Length") {
		rw.header.Set("Content-Length", strconv.Itoa(knownLen))
	}

	// Assemble the status line and header block in one pooled buffer so the
	// underlying writer sees a single Write instead of one per header.
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n", rw.status, ReasonPhrase(rw.status))
	rw.header.VisitAll(func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString(crlf)
	})
	buf.WriteString(crlf)

	_, err := rw.w.Write(buf.Bytes())
	return err
}

// Flush writes any pending header block (if Write/WriteResponse never ran)
// and flushes the underlying writer if it supports it.
func (rw *ResponseWriter) Flush() error {
	if !rw.headerWritten {
		if err := rw.flushHeader(-1, false); err != nil {
			return err
		}
	}
	if f, ok := rw.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Reset rebinds the ResponseWriter to a new sink for reuse across requests
// on the same connection.
func (rw *ResponseWriter) Reset(w io.Writer) {
	rw.w = w
	rw.status = 200
	rw.header = NewHeader()
	rw.statusWritten = false
	rw.headerWritten = false
	rw.bytesWritten = 0
}

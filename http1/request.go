package http1

import (
	"bufio"
	"context"
	"io"
)

// Request is an immutable-headers HTTP/1.1 request as received from a
// connection. Body is either fully buffered (Body set, BodyStream nil) or a
// lazy stream positioned at the first body byte (BodyStream set) for
// streaming routes, per the ParseResult/HeadersOnlyResult split in §3.
type Request struct {
	Method string
	URI    string // raw request-target, as sent
	Path   string // decoded path, normalized, without query string
	Query  string // raw query string, without leading '?'
	Proto  string // "HTTP/1.1"

	Header *Header

	// Body holds the fully-read body for buffered handlers. Nil until the
	// Connection Runtime reads it (or for streaming routes, never).
	Body []byte

	// BodyStream is set instead of Body for streaming routes: a reader
	// positioned at the first body byte, already wrapped to enforce
	// Content-Length/chunked framing and size limits.
	BodyStream io.Reader

	RemoteAddr string

	// Close reports whether the client requested Connection: close.
	Close bool

	ctx context.Context
}

// Context returns the request-scoped context, defaulting to
// context.Background() if none was attached.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context replaced.
// Request-scoped state (session, request id) flows through a per-request
// context value, never a process-wide mutable slot.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// HeadersOnlyResult is the intermediate parse product: method, URI, version,
// and headers, with the body left unread so streaming routes can consume it
// lazily (§3 ParseResult / HeadersOnlyResult).
type HeadersOnlyResult struct {
	Method string
	URI    string
	Path   string
	Query  string
	Proto  string
	Header *Header
	Close  bool

	// bodyReader is the buffered connection reader, positioned immediately
	// after the blank line terminating the headers.
	bodyReader *bufio.Reader
}

// BodyReader returns the connection reader positioned at the first body
// byte, for callers (the Connection Runtime) that need to construct a body
// reader via NewBodyReader themselves — e.g. for streaming routes, or to
// hand the raw socket off to the WebSocket Runtime on upgrade.
func (h *HeadersOnlyResult) BodyReader() *bufio.Reader { return h.bodyReader }

// ToRequest builds a Request from a parsed header block and a Body value
// (either the fully-read bytes for a buffered handler, or nil with
// bodyStream set for a streaming one).
func (h *HeadersOnlyResult) ToRequest(remoteAddr string, body []byte, bodyStream io.Reader) *Request {
	return &Request{
		Method:     h.Method,
		URI:        h.URI,
		Path:       h.Path,
		Query:      h.Query,
		Proto:      h.Proto,
		Header:     h.Header,
		Body:       body,
		BodyStream: bodyStream,
		RemoteAddr: remoteAddr,
		Close:      h.Close,
	}
}

// ParseResult is a HeadersOnlyResult together with a fully-read body, used
// once a buffered handler has requested the body be read eagerly.
type ParseResult struct {
	HeadersOnlyResult
	Body []byte
}

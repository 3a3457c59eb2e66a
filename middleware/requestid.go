package middleware

import (
	"context"

	"github.com/rs/xid"

	"github.com/mirainet/spider/http1"
)

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	// Header is the header name carrying the request id, both inbound
	// (trusted passthrough) and outbound. Defaults to "X-Request-ID".
	Header string
}

type requestIDContextKey struct{}

// RequestIDFromContext retrieves the id attached by the RequestID
// middleware, or "" if the middleware did not run.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}

type requestIDMiddleware struct {
	header string
}

// RequestID implements §4.7's Request ID middleware: pre, take the inbound
// header value if present, otherwise mint a fresh one via xid.New (a
// sortable, globally unique 12-byte id) and attach it to the request
// context; post, stamp it back onto the response header.
func RequestID(cfgs ...RequestIDConfig) Middleware {
	header := "X-Request-ID"
	if len(cfgs) > 0 && cfgs[0].Header != "" {
		header = cfgs[0].Header
	}
	return &requestIDMiddleware{header: header}
}

func (m *requestIDMiddleware) PreProcess(req *http1.Request) MiddlewareResult {
	id := req.Header.Get(m.header)
	if id == "" {
		id = xid.New().String()
	}
	ctx := context.WithValue(req.Context(), requestIDContextKey{}, id)
	return Continue(req.WithContext(ctx))
}

func (m *requestIDMiddleware) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	if id := RequestIDFromContext(req.Context()); id != "" {
		resp.Header.Set(m.header, id)
	}
	return resp
}

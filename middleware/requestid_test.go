package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
)

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	m := RequestID()
	req := newReq()

	var seen string
	resp := Apply(m, req, func(r *http1.Request) *http1.Response {
		seen = RequestIDFromContext(r.Context())
		return http1.NewResponse()
	})

	require.NotEmpty(t, seen)
	require.Equal(t, seen, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDPassesThroughInboundValue(t *testing.T) {
	m := RequestID()
	req := newReq()
	req.Header.Set("X-Request-ID", "fixed-id")

	resp := Apply(m, req, okHandler)
	require.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))
}

func TestRequestIDCustomHeader(t *testing.T) {
	m := RequestID(RequestIDConfig{Header: "X-Trace-ID"})
	req := newReq()

	resp := Apply(m, req, okHandler)
	require.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	require.Empty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDFromContextWithoutMiddlewareIsEmpty(t *testing.T) {
	require.Empty(t, RequestIDFromContext(newReq().Context()))
}

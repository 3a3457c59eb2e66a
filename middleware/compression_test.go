package middleware

import (
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
)

func bigHandler(r *http1.Request) *http1.Response {
	resp := http1.NewResponse()
	resp.Kind = http1.BodyString
	resp.Str = strings.Repeat("hello world ", 100)
	resp.Header.Set("Content-Type", "text/plain")
	return resp
}

func TestCompressionGzipsWhenAccepted(t *testing.T) {
	m := Compression(CompressionConfig{MinSize: 10})
	req := newReq()
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp := Apply(m, req, bigHandler)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	require.Equal(t, "Accept-Encoding", resp.Header.Get("Vary"))
	require.Equal(t, http1.BodyBytes, resp.Kind)

	r, err := gzip.NewReader(strings.NewReader(string(resp.Bytes)))
	require.NoError(t, err)
	defer r.Close()
}

func TestCompressionPrefersBrotliWhenOffered(t *testing.T) {
	m := Compression(CompressionConfig{MinSize: 10})
	req := newReq()
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp := Apply(m, req, bigHandler)
	require.Equal(t, "br", resp.Header.Get("Content-Encoding"))
}

func TestCompressionSkipsBelowMinSize(t *testing.T) {
	m := Compression(CompressionConfig{MinSize: 1_000_000})
	req := newReq()
	req.Header.Set("Accept-Encoding", "gzip")

	resp := Apply(m, req, bigHandler)
	require.Empty(t, resp.Header.Get("Content-Encoding"))
}

func TestCompressionSkipsWithoutAcceptEncoding(t *testing.T) {
	m := Compression(CompressionConfig{MinSize: 1})
	req := newReq()

	resp := Apply(m, req, bigHandler)
	require.Empty(t, resp.Header.Get("Content-Encoding"))
}

func TestCompressionSkipsExcludedContentType(t *testing.T) {
	m := Compression(CompressionConfig{MinSize: 1, ExcludeContentTypes: []string{"text/plain"}})
	req := newReq()
	req.Header.Set("Accept-Encoding", "gzip")

	resp := Apply(m, req, bigHandler)
	require.Empty(t, resp.Header.Get("Content-Encoding"))
}

func TestCompressionSkipsAlreadyEncoded(t *testing.T) {
	m := Compression(CompressionConfig{MinSize: 1})
	req := newReq()
	req.Header.Set("Accept-Encoding", "gzip")

	resp := Apply(m, req, func(r *http1.Request) *http1.Response {
		resp := bigHandler(r)
		resp.Header.Set("Content-Encoding", "identity")
		return resp
	})
	require.Equal(t, "identity", resp.Header.Get("Content-Encoding"))
}

package middleware

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/mirainet/spider/http1"
)

// CompressionConfig configures the Compression middleware per §4.7/§6.
type CompressionConfig struct {
	// Level is the compression level, 0-9 (gzip.DefaultCompression if 0).
	Level int
	// MinSize is the minimum response body size, in bytes, worth compressing.
	MinSize int
	// ExcludeContentTypes lists Content-Type values (exact match) never
	// compressed — e.g. already-compressed image formats.
	ExcludeContentTypes []string
}

type compressionMiddleware struct {
	cfg CompressionConfig
}

// Compression implements §4.7's Compression middleware: post-only, it
// replaces an eligible response body with its compressed form and sets
// Content-Encoding, Content-Length, and Vary: Accept-Encoding. klauspost's
// gzip/zlib replace stdlib compress/gzip and compress/flate for speed; a
// third encoding, brotli (br), is offered additively when the client asks
// for it, ahead of gzip/deflate since it compresses better at comparable
// levels — gzip remains preferred over deflate, per spec, when neither br
// nor a brotli-capable client is in play.
func Compression(cfg CompressionConfig) Middleware {
	if cfg.Level == 0 {
		cfg.Level = gzip.DefaultCompression
	}
	return &compressionMiddleware{cfg: cfg}
}

func (m *compressionMiddleware) PreProcess(req *http1.Request) MiddlewareResult {
	return Continue(req)
}

func (m *compressionMiddleware) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	if resp.Header.Has("Content-Encoding") {
		return resp
	}
	if resp.Kind != http1.BodyString && resp.Kind != http1.BodyBytes {
		return resp
	}

	body := resp.Bytes
	if resp.Kind == http1.BodyString {
		body = []byte(resp.Str)
	}
	if len(body) < m.cfg.MinSize {
		return resp
	}
	if ct := resp.Header.Get("Content-Type"); m.excluded(ct) {
		return resp
	}

	accept := req.Header.Get("Accept-Encoding")
	encoding, compressed, err := m.compress(accept, body)
	if encoding == "" || err != nil {
		return resp
	}

	resp.Kind = http1.BodyBytes
	resp.Bytes = compressed
	resp.Str = ""
	resp.Header.Set("Content-Encoding", encoding)
	resp.Header.Set("Content-Length", strconv.Itoa(len(compressed)))
	resp.Header.Add("Vary", "Accept-Encoding")
	return resp
}

func (m *compressionMiddleware) excluded(contentType string) bool {
	for _, ct := range m.cfg.ExcludeContentTypes {
		if ct == contentType {
			return true
		}
	}
	return false
}

func (m *compressionMiddleware) compress(acceptEncoding string, body []byte) (string, []byte, error) {
	switch {
	case strings.Contains(acceptEncoding, "br"):
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, brotliLevel(m.cfg.Level))
		if _, err := w.Write(body); err != nil {
			return "", nil, err
		}
		if err := w.Close(); err != nil {
			return "", nil, err
		}
		return "br", buf.Bytes(), nil
	case strings.Contains(acceptEncoding, "gzip"):
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, m.cfg.Level)
		if err != nil {
			return "", nil, err
		}
		if _, err := w.Write(body); err != nil {
			return "", nil, err
		}
		if err := w.Close(); err != nil {
			return "", nil, err
		}
		return "gzip", buf.Bytes(), nil
	case strings.Contains(acceptEncoding, "deflate"):
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, m.cfg.Level)
		if err != nil {
			return "", nil, err
		}
		if _, err := w.Write(body); err != nil {
			return "", nil, err
		}
		if err := w.Close(); err != nil {
			return "", nil, err
		}
		return "deflate", buf.Bytes(), nil
	default:
		return "", nil, nil
	}
}

func brotliLevel(level int) int {
	if level < 0 || level > 11 {
		return brotli.DefaultCompression
	}
	return level
}

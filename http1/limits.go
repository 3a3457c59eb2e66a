package http1

import "time"

// Config holds process-wide tunables for the parser, body ingestion, and
// keep-alive loop (§4.2). A Config is immutable once constructed and is
// passed by reference through parsing and the connection runtime.
type Config struct {
	MaxRequestLineLength int
	MaxHeaderCount       int
	MaxHeaderSize        int
	MaxTotalHeadersSize  int
	// MaxRequestBodySize is the maximum body size in bytes. Zero means
	// unbounded.
	MaxRequestBodySize int64

	SocketTimeout  time.Duration
	RequestTimeout time.Duration

	EnableChunkedEncoding bool
	EnableKeepAlive       bool
	// MaxKeepAliveRequests caps requests served per connection. Zero means
	// unbounded.
	MaxKeepAliveRequests int
}

// DefaultConfig returns the "default" preset (§4.2).
func DefaultConfig() *Config {
	return &Config{
		MaxRequestLineLength:  8 * 1024,
		MaxHeaderCount:        100,
		MaxHeaderSize:         8 * 1024,
		MaxTotalHeadersSize:   64 * 1024,
		MaxRequestBodySize:    10 * 1024 * 1024,
		SocketTimeout:         30 * time.Second,
		RequestTimeout:        60 * time.Second,
		EnableChunkedEncoding: true,
		EnableKeepAlive:       true,
		MaxKeepAliveRequests:  100,
	}
}

// DevelopmentConfig returns the "development" preset: higher caps, longer
// timeouts, convenient for local iteration.
func DevelopmentConfig() *Config {
	c := DefaultConfig()
	c.MaxHeaderCount = 200
	c.MaxHeaderSize = 16 * 1024
	c.MaxTotalHeadersSize = 256 * 1024
	c.MaxRequestBodySize = 0 // unbounded
	c.SocketTimeout = 5 * time.Minute
	c.RequestTimeout = 5 * time.Minute
	c.MaxKeepAliveRequests = 0 // unbounded
	return c
}

// StrictConfig returns the "strict" preset: lower caps, shorter timeouts,
// suited to untrusted public endpoints.
func StrictConfig() *Config {
	c := DefaultConfig()
	c.MaxHeaderCount = 40
	c.MaxHeaderSize = 4 * 1024
	c.MaxTotalHeadersSize = 16 * 1024
	c.MaxRequestBodySize = 1 * 1024 * 1024
	c.SocketTimeout = 10 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.MaxKeepAliveRequests = 20
	return c
}

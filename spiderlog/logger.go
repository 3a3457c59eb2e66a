// Package spiderlog wraps zerolog with the connection/request child-logger
// hierarchy the Connection Runtime (C5) needs: one logger per Runtime, one
// child per accepted connection carrying a connection id, one grandchild per
// request carrying a request id.
package spiderlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the root logger. verbose lowers the level to debug; otherwise
// info is the floor. Client-caused errors (bad requests, limit rejections)
// log at warn; internal failures (handler panics) log at error.
func New(w io.Writer, verbose bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// WithConnection returns a child logger carrying the connection id.
func WithConnection(base zerolog.Logger, connID string) zerolog.Logger {
	return base.With().Str("conn_id", connID).Logger()
}

// WithRequest returns a grandchild logger carrying the request id, derived
// from a connection-scoped logger.
func WithRequest(connLogger zerolog.Logger, requestID string) zerolog.Logger {
	return connLogger.With().Str("request_id", requestID).Logger()
}

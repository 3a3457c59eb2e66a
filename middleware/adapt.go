package middleware

import (
	"github.com/mirainet/spider/conn"
	"github.com/mirainet/spider/http1"
)

// Buffered adapts a Middleware chain plus Handler into a conn.BufferedHandler,
// so a route can be wrapped in CORS/CSRF/session/rate-limit/compression/
// request-id middleware without conn itself knowing this package exists.
func Buffered(m Middleware, h Handler) conn.BufferedHandler {
	return func(c *conn.ResponseContext) {
		resp := Apply(m, c.Request, h)
		if resp == nil {
			resp = http1.NewResponse()
		}
		_ = c.Writer.WriteResponse(resp)
	}
}

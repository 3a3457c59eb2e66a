package middleware

import "github.com/mirainet/spider/http1"

// MiddlewareResult is what a PreProcess step returns: either Continue with a
// (possibly rewritten) request, or Respond with a response that bypasses the
// handler — and, per §4.7, bypasses every remaining PostProcess step too.
type MiddlewareResult struct {
	respond  bool
	request  *http1.Request
	response *http1.Response
}

// Continue lets the request proceed to the next PreProcess step (or the
// handler, if this is the last one).
func Continue(req *http1.Request) MiddlewareResult {
	return MiddlewareResult{request: req}
}

// Respond short-circuits: resp is returned as-is, the handler is never
// invoked, and no PostProcess step runs.
func Respond(resp *http1.Response) MiddlewareResult {
	return MiddlewareResult{respond: true, response: resp}
}

// IsRespond reports whether this result short-circuits the chain.
func (r MiddlewareResult) IsRespond() bool { return r.respond }

// Request returns the (possibly rewritten) request for a Continue result.
func (r MiddlewareResult) Request() *http1.Request { return r.request }

// Response returns the short-circuit response for a Respond result.
func (r MiddlewareResult) Response() *http1.Response { return r.response }

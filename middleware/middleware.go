// Package middleware implements the Middleware Core (C7): a small algebra of
// composable request/response transforms, plus the six named middlewares
// (CORS, CSRF, session, rate limit, compression, request id) built on it.
//
// Rather than a func(Handler) Handler decorator style, a Middleware
// here is a PreProcess/PostProcess pair: PreProcess runs before the handler
// and may short-circuit with a Respond result; PostProcess runs after, and
// only on the non-short-circuited path. Splitting the two lets AndThen nest
// PostProcess the opposite way it chains PreProcess (a wraps b), which is
// what lets CORS/compression/request-id stamp response headers without ever
// touching the handler.
package middleware

import "github.com/mirainet/spider/http1"

// Middleware is one stage of the chain.
type Middleware interface {
	PreProcess(req *http1.Request) MiddlewareResult
	PostProcess(req *http1.Request, resp *http1.Response) *http1.Response
}

// identity is AndThen's neutral element: every request continues unchanged,
// every response passes through untouched.
type identity struct{}

func (identity) PreProcess(req *http1.Request) MiddlewareResult { return Continue(req) }

func (identity) PostProcess(_ *http1.Request, resp *http1.Response) *http1.Response { return resp }

// Identity returns the no-op middleware.
func Identity() Middleware { return identity{} }

// chain is the result of AndThen: a.PreProcess runs first, b.PreProcess only
// if a continued; a.PostProcess wraps b.PostProcess.
type chain struct {
	a, b Middleware
}

// AndThen composes a then b. Composition is associative with Identity() as
// its neutral element — (a.AndThen(b)).AndThen(c) behaves the same as
// a.AndThen(b.AndThen(c)) for any request.
func AndThen(a, b Middleware) Middleware {
	return chain{a: a, b: b}
}

func (c chain) PreProcess(req *http1.Request) MiddlewareResult {
	r := c.a.PreProcess(req)
	if r.IsRespond() {
		return r
	}
	return c.b.PreProcess(r.Request())
}

func (c chain) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	return c.a.PostProcess(req, c.b.PostProcess(req, resp))
}

// Chain builds one Middleware out of zero or more, in order, via repeated
// AndThen starting from Identity().
func Chain(ms ...Middleware) Middleware {
	m := Identity()
	for _, next := range ms {
		m = AndThen(m, next)
	}
	return m
}

// Handler is the typed-response handler a middleware chain wraps.
type Handler func(req *http1.Request) *http1.Response

// Apply runs m's PreProcess, then — unless it short-circuited — the handler
// followed by m's PostProcess. A Respond result from PreProcess is returned
// immediately, bypassing both the handler and every PostProcess step, per
// §4.7's short-circuit dominance.
func Apply(m Middleware, req *http1.Request, handler Handler) *http1.Response {
	r := m.PreProcess(req)
	if r.IsRespond() {
		return r.Response()
	}
	req = r.Request()
	return m.PostProcess(req, handler(req))
}

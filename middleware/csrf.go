package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"github.com/mirainet/spider/http1"
)

// CSRFConfig configures the CSRF middleware, with defaults matching the
// double-submit cookie pattern named in §4.7 (cookie XSRF-TOKEN, header
// X-XSRF-TOKEN).
type CSRFConfig struct {
	CookieName   string
	HeaderName   string
	TokenLength  int
	CookiePath   string
	CookieDomain string
	CookieSecure bool
	CookieHTTP   bool // HttpOnly
	SameSite     http1.SameSite
}

// DefaultCSRFConfig returns the double-submit cookie defaults from §4.7.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookieName:   "XSRF-TOKEN",
		HeaderName:   "X-XSRF-TOKEN",
		TokenLength:  32,
		CookiePath:   "/",
		CookieSecure: true,
		CookieHTTP:   true,
		SameSite:     http1.SameSiteLax,
	}
}

var safeMethods = map[string]bool{"GET": true, "HEAD": true, "OPTIONS": true}

type csrfMiddleware struct {
	cfg CSRFConfig
}

// CSRF implements the double-submit cookie pattern: safe methods get an
// unpredictable token cookie set if missing; mutating methods must echo that
// token in the configured header, compared in constant time, or the request
// is short-circuited with 403.
func CSRF(cfgs ...CSRFConfig) Middleware {
	cfg := DefaultCSRFConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	return &csrfMiddleware{cfg: cfg}
}

func (m *csrfMiddleware) PreProcess(req *http1.Request) MiddlewareResult {
	cookies := http1.ParseCookies(req.Header.Get("Cookie"))
	existing, hasCookie := cookies[m.cfg.CookieName]

	if safeMethods[req.Method] {
		if !hasCookie || existing == "" {
			req = req.WithContext(withPendingCSRFToken(req.Context(), generateCSRFToken(m.cfg.TokenLength)))
		}
		return Continue(req)
	}

	if !hasCookie || existing == "" {
		return Respond(forbidden("CSRF token missing"))
	}
	headerTok := req.Header.Get(m.cfg.HeaderName)
	if headerTok == "" || !constantTimeEqual(existing, headerTok) {
		return Respond(forbidden("CSRF token invalid"))
	}
	return Continue(req)
}

func (m *csrfMiddleware) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	tok, ok := pendingCSRFToken(req.Context())
	if !ok {
		return resp
	}
	cookie := &http1.Cookie{
		Name:     m.cfg.CookieName,
		Value:    tok,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HTTPOnly: m.cfg.CookieHTTP,
		SameSite: m.cfg.SameSite,
	}
	resp.Header.Add("Set-Cookie", cookie.String())
	return resp
}

func generateCSRFToken(length int) string {
	if length <= 0 {
		length = 32
	}
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

package middleware

import (
	"strconv"
	"strings"

	"github.com/mirainet/spider/http1"
)

// CORSConfig configures the CORS middleware, trimmed to the fields §4.7
// names: origin/method/header allow-lists, exposed headers, credentials,
// and preflight cache duration.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to make cross-origin requests.
	// "*" allows any origin, but is rejected at construction time if
	// Credentials is also set (a credentialed wildcard leaks cookies to any
	// site, which no browser actually honors anyway).
	AllowedOrigins []string
	// AllowedMethods lists methods a preflight request may request. Defaults
	// to GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS.
	AllowedMethods []string
	// AllowedHeaders lists headers a preflight request may request.
	AllowedHeaders []string
	// ExposedHeaders lists response headers exposed to browser JS via
	// Access-Control-Expose-Headers.
	ExposedHeaders []string
	// AllowCredentials sets Access-Control-Allow-Credentials: true. Mutually
	// exclusive with a wildcard origin.
	AllowCredentials bool
	// MaxAge is the preflight cache duration, in seconds.
	MaxAge int
}

var defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

type corsMiddleware struct {
	cfg            CORSConfig
	allowedMethods []string
	methodsHeader  string
	headersHeader  string
	exposeHeader   string
	wildcard       bool
}

// CORS builds the CORS middleware. Per §4.7: a preflight request (OPTIONS
// with Access-Control-Request-Method present) is validated against the
// config and answered with 204 plus allow headers, short-circuiting before
// the handler runs; any other request passes through, and the response gets
// Access-Control-Allow-* headers stamped on in post.
func CORS(cfg CORSConfig) Middleware {
	allowedMethods := uniqOrDefault(cfg.AllowedMethods, defaultCORSMethods)
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
			break
		}
	}
	if wildcard && cfg.AllowCredentials {
		panic("middleware: CORS cannot use wildcard origin with AllowCredentials=true")
	}

	return &corsMiddleware{
		cfg:            cfg,
		allowedMethods: allowedMethods,
		methodsHeader:  strings.Join(allowedMethods, ", "),
		headersHeader:  strings.Join(cfg.AllowedHeaders, ", "),
		exposeHeader:   strings.Join(cfg.ExposedHeaders, ", "),
		wildcard:       wildcard,
	}
}

func (m *corsMiddleware) allowedOrigin(origin string) string {
	if len(m.cfg.AllowedOrigins) == 0 {
		return ""
	}
	if m.wildcard {
		return "*"
	}
	if origin == "" || origin == "null" {
		return ""
	}
	for _, allowed := range m.cfg.AllowedOrigins {
		if allowed == origin {
			return origin
		}
	}
	return ""
}

func (m *corsMiddleware) PreProcess(req *http1.Request) MiddlewareResult {
	if req.Method != "OPTIONS" {
		return Continue(req)
	}
	reqMethod := req.Header.Get("Access-Control-Request-Method")
	if reqMethod == "" {
		return Continue(req)
	}

	methodAllowed := false
	for _, m2 := range m.allowedMethods {
		if m2 == reqMethod {
			methodAllowed = true
			break
		}
	}
	if !methodAllowed {
		return Respond(forbidden("method not allowed"))
	}

	if reqHeaders := req.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" && len(m.cfg.AllowedHeaders) > 0 {
		for _, h := range strings.Split(reqHeaders, ",") {
			h = strings.TrimSpace(h)
			if !headerAllowed(h, m.cfg.AllowedHeaders) {
				return Respond(forbidden("header not allowed"))
			}
		}
	}

	resp := http1.NewResponse()
	resp.Status = 204
	if origin := m.allowedOrigin(req.Header.Get("Origin")); origin != "" {
		resp.Header.Set("Access-Control-Allow-Origin", origin)
	}
	if m.methodsHeader != "" {
		resp.Header.Set("Access-Control-Allow-Methods", m.methodsHeader)
	}
	if m.headersHeader != "" {
		resp.Header.Set("Access-Control-Allow-Headers", m.headersHeader)
	}
	if m.cfg.AllowCredentials {
		resp.Header.Set("Access-Control-Allow-Credentials", "true")
	}
	if m.cfg.MaxAge > 0 {
		resp.Header.Set("Access-Control-Max-Age", strconv.Itoa(m.cfg.MaxAge))
	}
	return Respond(resp)
}

func (m *corsMiddleware) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	if origin := m.allowedOrigin(req.Header.Get("Origin")); origin != "" {
		resp.Header.Set("Access-Control-Allow-Origin", origin)
		if m.cfg.AllowCredentials {
			resp.Header.Set("Access-Control-Allow-Credentials", "true")
		}
	}
	if m.exposeHeader != "" {
		resp.Header.Set("Access-Control-Expose-Headers", m.exposeHeader)
	}
	return resp
}

func headerAllowed(name string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

func forbidden(msg string) *http1.Response {
	resp := http1.NewResponse()
	resp.Status = 403
	resp.Kind = http1.BodyString
	resp.Str = msg
	return resp
}

// uniqOrDefault returns v with duplicates removed, or def if v is empty.
func uniqOrDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	seen := make(map[string]struct{}, len(v))
	out := make([]string, 0, len(v))
	for _, s := range v {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

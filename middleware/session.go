package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/session"
)

// newSessionID returns a fresh session identifier. A random (v4) UUID gives
// 122 bits of entropy, unguessable and with no coordination needed across
// worker goroutines.
func newSessionID() string {
	return uuid.NewString()
}

// SessionConfig configures the Session middleware per §4.7/§6, adapted to
// session.Store and http1.Cookie instead of net/http's cookie jar.
type SessionConfig struct {
	Store Store

	CookieName string
	MaxAge     time.Duration
	Secure     bool
	HTTPOnly   bool
	SameSite   http1.SameSite
	Path       string
	Domain     string

	// SlidingExpiration, when true, refreshes a session's expiry to
	// now+MaxAge on every access instead of only on Save.
	SlidingExpiration bool

	// RotateOnAuth documents the intended use of Session.Regenerate(): call
	// it from a login handler after authenticating, to issue a fresh session
	// id and defeat session fixation. The middleware itself has no signal
	// for "the user just authenticated", so this flag is not enforced here —
	// it exists so operators reading SessionConfig see the expectation.
	RotateOnAuth bool
}

// Store is an alias for session.Store, so callers configuring the middleware
// don't need to import the session package directly for the common case.
type Store = session.Store

func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		Store:      session.NewMemoryStore(),
		CookieName: "spider.sid",
		MaxAge:     24 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http1.SameSiteLax,
		Path:       "/",
	}
}

// Session is the per-request view of session state, reachable from a
// handler via SessionFromContext(req.Context()).
type Session struct {
	id        string
	values    session.Data
	isNew     bool
	changed   bool
	oldID     string
	regenName bool
}

func (s *Session) Get(key string) (any, bool) {
	if s.values == nil {
		return nil, false
	}
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key string, v any) {
	if s.values == nil {
		s.values = make(session.Data)
	}
	s.values[key] = v
	s.changed = true
}

func (s *Session) Delete(key string) {
	delete(s.values, key)
	s.changed = true
}

// Regenerate issues a fresh session id, preserving the current data, and
// schedules the old id for deletion in post. Call after authenticating a
// previously-anonymous session to prevent fixation.
func (s *Session) Regenerate() {
	if s.id != "" {
		s.oldID = s.id
	}
	s.id = newSessionID()
	s.changed = true
	s.regenName = true
}

func (s *Session) IsNew() bool { return s.isNew }

type sessionContextKey struct{}

// SessionFromContext retrieves the Session attached by the Session
// middleware, or an empty detached one if the middleware did not run.
func SessionFromContext(ctx context.Context) *Session {
	if v := ctx.Value(sessionContextKey{}); v != nil {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return &Session{values: make(session.Data)}
}

type sessionMiddleware struct {
	cfg SessionConfig
}

// Sessions implements the Session middleware from §4.7: pre, look up the
// configured cookie and fetch from the Store; if found, attach to the
// request context (touching sliding expiry if configured). Post, if the
// session exists and was changed (or is new with data), persist it and emit
// the session cookie.
func Sessions(cfgs ...SessionConfig) Middleware {
	cfg := defaultSessionConfig()
	if len(cfgs) > 0 {
		c := cfgs[0]
		if c.Store != nil {
			cfg.Store = c.Store
		}
		if c.CookieName != "" {
			cfg.CookieName = c.CookieName
		}
		if c.MaxAge != 0 {
			cfg.MaxAge = c.MaxAge
		}
		if c.Path != "" {
			cfg.Path = c.Path
		}
		cfg.Secure = c.Secure
		cfg.HTTPOnly = c.HTTPOnly
		cfg.SameSite = c.SameSite
		cfg.Domain = c.Domain
		cfg.SlidingExpiration = c.SlidingExpiration
		cfg.RotateOnAuth = c.RotateOnAuth
	}
	return &sessionMiddleware{cfg: cfg}
}

func (m *sessionMiddleware) PreProcess(req *http1.Request) MiddlewareResult {
	cookies := http1.ParseCookies(req.Header.Get("Cookie"))
	id := cookies[m.cfg.CookieName]

	sess := &Session{}
	if id != "" {
		if values, ok := m.cfg.Store.Get(id); ok {
			sess.id = id
			sess.values = values
			if m.cfg.SlidingExpiration {
				_ = m.cfg.Store.Save(id, values, m.cfg.MaxAge)
			}
		} else {
			sess.isNew = true
			sess.values = make(session.Data)
		}
	} else {
		sess.isNew = true
		sess.values = make(session.Data)
	}

	ctx := context.WithValue(req.Context(), sessionContextKey{}, sess)
	return Continue(req.WithContext(ctx))
}

func (m *sessionMiddleware) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	sess := SessionFromContext(req.Context())
	if sess.regenName && sess.oldID != "" {
		_ = m.cfg.Store.Delete(sess.oldID)
	}
	if !sess.changed && !(sess.isNew && len(sess.values) > 0) {
		return resp
	}
	if sess.id == "" {
		sess.id = newSessionID()
	}
	_ = m.cfg.Store.Save(sess.id, sess.values, m.cfg.MaxAge)

	cookie := &http1.Cookie{
		Name:     m.cfg.CookieName,
		Value:    sess.id,
		Path:     m.cfg.Path,
		Domain:   m.cfg.Domain,
		MaxAge:   int(m.cfg.MaxAge.Seconds()),
		Secure:   m.cfg.Secure,
		HTTPOnly: m.cfg.HTTPOnly,
		SameSite: m.cfg.SameSite,
	}
	resp.Header.Add("Set-Cookie", cookie.String())
	return resp
}

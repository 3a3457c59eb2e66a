package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/session"
)

func TestSessionsNewSessionNoCookieUntilDataSet(t *testing.T) {
	store := session.NewMemoryStore()
	m := Sessions(SessionConfig{Store: store, CookieName: "sid"})
	req := newReq()

	resp := Apply(m, req, okHandler)
	require.Empty(t, resp.Header.Get("Set-Cookie"))
}

func TestSessionsNewSessionWithDataSetsCookie(t *testing.T) {
	store := session.NewMemoryStore()
	m := Sessions(SessionConfig{Store: store, CookieName: "sid"})
	req := newReq()

	var gotSess *Session
	resp := Apply(m, req, func(r *http1.Request) *http1.Response {
		sess := SessionFromContext(r.Context())
		sess.Set("user", "alice")
		resp := http1.NewResponse()
		gotSess = sess
		return resp
	})

	// A new session's id is minted in PostProcess, so read it after Apply.
	require.Contains(t, resp.Header.Get("Set-Cookie"), "sid=")
	values, ok := store.Get(gotSess.id)
	require.True(t, ok)
	require.Equal(t, "alice", values["user"])
}

func TestSessionsRoundTripsExistingSession(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save("existing-id", session.Data{"user": "bob"}, 0))

	m := Sessions(SessionConfig{Store: store, CookieName: "sid"})
	req := newReq()
	req.Header.Set("Cookie", "sid=existing-id")

	var gotUser any
	var found bool
	_ = Apply(m, req, func(r *http1.Request) *http1.Response {
		gotUser, found = SessionFromContext(r.Context()).Get("user")
		return http1.NewResponse()
	})

	require.True(t, found)
	require.Equal(t, "bob", gotUser)
}

func TestSessionsRegenerateDeletesOldID(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save("old-id", session.Data{"user": "carol"}, 0))

	m := Sessions(SessionConfig{Store: store, CookieName: "sid"})
	req := newReq()
	req.Header.Set("Cookie", "sid=old-id")

	_ = Apply(m, req, func(r *http1.Request) *http1.Response {
		SessionFromContext(r.Context()).Regenerate()
		return http1.NewResponse()
	})

	_, ok := store.Get("old-id")
	require.False(t, ok)
}

func TestSessionFromContextWithoutMiddlewareReturnsEmpty(t *testing.T) {
	req := newReq()
	sess := SessionFromContext(req.Context())
	_, ok := sess.Get("anything")
	require.False(t, ok)
}

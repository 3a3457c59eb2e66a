package middleware

import "context"

type pendingCSRFKey struct{}

// withPendingCSRFToken stashes a freshly generated CSRF token for PostProcess
// to pick up and set as a cookie — PreProcess only has the request, but the
// Set-Cookie write has to happen once a Response exists.
func withPendingCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, pendingCSRFKey{}, token)
}

func pendingCSRFToken(ctx context.Context) (string, bool) {
	v := ctx.Value(pendingCSRFKey{})
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

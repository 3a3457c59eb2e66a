package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
)

func TestRateLimitTokenBucketAllowsUpToLimit(t *testing.T) {
	m := RateLimit(RateLimitConfig{MaxRequests: 2, WindowMs: 60_000})
	req := newReq()
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	resp1 := Apply(m, req, okHandler)
	require.Equal(t, 200, resp1.Status)
	require.Equal(t, "2", resp1.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "0", resp1.Header.Get("X-RateLimit-Remaining"))

	resp2 := Apply(m, req, okHandler)
	require.Equal(t, 200, resp2.Status)

	resp3 := Apply(m, req, okHandler)
	require.Equal(t, 429, resp3.Status)
	require.Equal(t, "0", resp3.Header.Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, resp3.Header.Get("Retry-After"))
}

func TestRateLimitSlidingWindowAllowsUpToLimit(t *testing.T) {
	m := RateLimit(RateLimitConfig{MaxRequests: 1, WindowMs: 60_000, Algorithm: SlidingWindow})
	req := newReq()
	req.Header.Set("X-Forwarded-For", "5.6.7.8")

	resp1 := Apply(m, req, okHandler)
	require.Equal(t, 200, resp1.Status)

	resp2 := Apply(m, req, okHandler)
	require.Equal(t, 429, resp2.Status)
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	m := RateLimit(RateLimitConfig{MaxRequests: 1, WindowMs: 60_000})

	req1 := newReq()
	req1.Header.Set("X-Forwarded-For", "1.1.1.1")
	req2 := newReq()
	req2.Header.Set("X-Forwarded-For", "2.2.2.2")

	require.Equal(t, 200, Apply(m, req1, okHandler).Status)
	require.Equal(t, 200, Apply(m, req2, okHandler).Status)
	require.Equal(t, 429, Apply(m, req1, okHandler).Status)
}

func TestRateLimitDefaultKeyExtractorFallsBackToUnknown(t *testing.T) {
	require.Equal(t, "unknown", defaultKeyExtractor(newReq()))
}

func TestRateLimitDefaultKeyExtractorTakesFirstForwardedFor(t *testing.T) {
	req := newReq()
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.10.10.10")
	require.Equal(t, "9.9.9.9", defaultKeyExtractor(req))
}

func TestRateLimitCustomKeyExtractor(t *testing.T) {
	m := RateLimit(RateLimitConfig{
		MaxRequests:  1,
		WindowMs:     60_000,
		KeyExtractor: func(req *http1.Request) string { return "static" },
	})

	require.Equal(t, 200, Apply(m, newReq(), okHandler).Status)
	require.Equal(t, 429, Apply(m, newReq(), okHandler).Status)
}

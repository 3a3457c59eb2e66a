package middleware

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/metrics"
)

// Algorithm selects a rate-limiting strategy for RateLimitConfig, per §6's
// `algorithm ∈ {TokenBucket, SlidingWindow}`.
type Algorithm int

const (
	TokenBucket Algorithm = iota
	SlidingWindow
)

// KeyExtractor derives the rate-limit key (typically a client identity) from
// a request.
type KeyExtractor func(req *http1.Request) string

// defaultKeyExtractor takes the first X-Forwarded-For value, or "unknown"
// if the header is absent, per §4.7's stated default.
func defaultKeyExtractor(req *http1.Request) string {
	xff := req.Header.Get("X-Forwarded-For")
	if xff == "" {
		return "unknown"
	}
	first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	if first == "" {
		return "unknown"
	}
	return first
}

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	MaxRequests  int
	WindowMs     int
	Algorithm    Algorithm
	KeyExtractor KeyExtractor
}

type rateLimiter interface {
	// allow reports whether key may proceed, the remaining quota, and (when
	// denied) how long until retrying makes sense.
	allow(key string) (allowed bool, remaining int, retryAfter time.Duration)
}

type rateLimitMiddleware struct {
	cfg            RateLimitConfig
	limiter        rateLimiter
	algorithmLabel string
}

// RateLimit implements §4.7's Rate limit middleware: a request exceeding the
// limit is short-circuited with 429 plus X-RateLimit-*/Retry-After headers;
// an admitted request gets the same X-RateLimit-* headers stamped on its
// response in post.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if cfg.WindowMs <= 0 {
		cfg.WindowMs = 60_000
	}
	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = defaultKeyExtractor
	}

	var limiter rateLimiter
	var label string
	window := time.Duration(cfg.WindowMs) * time.Millisecond
	switch cfg.Algorithm {
	case SlidingWindow:
		limiter = newSlidingWindowLimiter(cfg.MaxRequests, window)
		label = "sliding_window"
	default:
		limiter = newTokenBucketLimiter(cfg.MaxRequests, window)
		label = "token_bucket"
	}

	return &rateLimitMiddleware{cfg: cfg, limiter: limiter, algorithmLabel: label}
}

type rateLimitStatusKey struct{}

type rateLimitStatus struct {
	limit     int
	remaining int
}

func (m *rateLimitMiddleware) PreProcess(req *http1.Request) MiddlewareResult {
	key := m.cfg.KeyExtractor(req)
	allowed, remaining, retryAfter := m.limiter.allow(key)
	if !allowed {
		metrics.RateLimitRejections.WithLabelValues(m.algorithmLabel).Inc()
		resp := http1.NewResponse()
		resp.Status = 429
		resp.Kind = http1.BodyString
		resp.Str = "Too Many Requests"
		resp.Header.Set("X-RateLimit-Limit", strconv.Itoa(m.cfg.MaxRequests))
		resp.Header.Set("X-RateLimit-Remaining", "0")
		resp.Header.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		return Respond(resp)
	}

	ctx := context.WithValue(req.Context(), rateLimitStatusKey{}, rateLimitStatus{limit: m.cfg.MaxRequests, remaining: remaining})
	return Continue(req.WithContext(ctx))
}

func (m *rateLimitMiddleware) PostProcess(req *http1.Request, resp *http1.Response) *http1.Response {
	if v, ok := req.Context().Value(rateLimitStatusKey{}).(rateLimitStatus); ok {
		resp.Header.Set("X-RateLimit-Limit", strconv.Itoa(v.limit))
		resp.Header.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	}
	return resp
}

// tokenBucketLimiter gives each key a bucket of capacity maxRequests that
// refills all at once: the first request after the window has elapsed starts
// a fresh, full bucket. Tokens are not returned gradually while a window is
// still running.
type tokenBucketLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	capacity int
	refill   time.Duration
}

type tokenBucket struct {
	remaining int
	resetAt   time.Time
}

func newTokenBucketLimiter(capacity int, window time.Duration) *tokenBucketLimiter {
	return &tokenBucketLimiter{buckets: make(map[string]*tokenBucket), capacity: capacity, refill: window}
}

func (l *tokenBucketLimiter) allow(key string) (bool, int, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &tokenBucket{remaining: l.capacity - 1, resetAt: now.Add(l.refill)}
		l.buckets[key] = b
		return true, b.remaining, 0
	}
	if b.remaining > 0 {
		b.remaining--
		return true, b.remaining, 0
	}
	retry := b.resetAt.Sub(now)
	if retry < 0 {
		retry = 0
	}
	return false, 0, retry
}

// slidingWindowLimiter admits a request if fewer than limit timestamps fall
// within the trailing window, per §4.7.
type slidingWindowLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	window  time.Duration
}

func newSlidingWindowLimiter(limit int, window time.Duration) *slidingWindowLimiter {
	return &slidingWindowLimiter{entries: make(map[string][]time.Time), limit: limit, window: window}
}

func (l *slidingWindowLimiter) allow(key string) (bool, int, time.Duration) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.entries[key]
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		earliest := kept[0]
		for _, t := range kept[1:] {
			if t.Before(earliest) {
				earliest = t
			}
		}
		retry := earliest.Add(l.window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		l.entries[key] = kept
		return false, 0, retry
	}

	kept = append(kept, now)
	l.entries[key] = kept
	return true, l.limit - len(kept), 0
}

package spiderconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/middleware"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "default", cfg.Preset)
	require.Nil(t, cfg.CORS)
	require.Nil(t, cfg.CSRF)
	require.Nil(t, cfg.RateLimit)
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spider.yaml")
	yaml := `
addr: ":9090"
preset: strict
reuse_port: true
cors:
  allowed_origins: ["https://example.com"]
  allow_credentials: true
rate_limit:
  max_requests: 5
  window_ms: 1000
  algorithm: sliding_window
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, "strict", cfg.Preset)
	require.True(t, cfg.ReusePort)
	require.NotNil(t, cfg.CORS)
	require.Equal(t, []string{"https://example.com"}, cfg.CORS.AllowedOrigins)
	require.True(t, cfg.CORS.AllowCredentials)
	require.NotNil(t, cfg.RateLimit)
	require.Equal(t, 5, cfg.RateLimit.MaxRequests)
	require.Equal(t, "sliding_window", cfg.RateLimit.Algorithm)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestHTTP1ConfigResolvesPreset(t *testing.T) {
	cfg := &Config{Preset: "development"}
	require.Equal(t, http1.DevelopmentConfig(), cfg.HTTP1Config())

	cfg.Preset = "strict"
	require.Equal(t, http1.StrictConfig(), cfg.HTTP1Config())

	cfg.Preset = "unknown"
	require.Equal(t, http1.DefaultConfig(), cfg.HTTP1Config())
}

func TestMiddlewaresSkipsUnconfiguredSections(t *testing.T) {
	cfg := &Config{}
	chain := cfg.Middlewares()

	req := &http1.Request{Method: "GET", Path: "/", Header: http1.NewHeader()}
	called := false
	resp := middleware.Apply(chain, req, func(r *http1.Request) *http1.Response {
		called = true
		return http1.NewResponse()
	})

	require.True(t, called)
	require.Equal(t, 200, resp.Status)
}

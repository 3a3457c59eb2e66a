// Package spiderconfig loads spider's runtime configuration from a YAML
// file via viper, overlaid by SPIDER_-prefixed environment variables and
// (through cmd/spiderd) CLI flags.
package spiderconfig

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/middleware"
)

// Config is the top-level shape a spiderd deployment reads: the listen
// address, which http1.Config preset to start from, and the named
// middlewares to enable with their settings.
type Config struct {
	Addr       string `mapstructure:"addr"`
	ReusePort  bool   `mapstructure:"reuse_port"`
	Preset     string `mapstructure:"preset"` // "default", "development", "strict"
	Verbose    bool   `mapstructure:"verbose"`

	CORS      *CORSConfig      `mapstructure:"cors"`
	CSRF      *CSRFConfig      `mapstructure:"csrf"`
	RateLimit *RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type CSRFConfig struct {
	CookieName  string `mapstructure:"cookie_name"`
	HeaderName  string `mapstructure:"header_name"`
	TokenLength int    `mapstructure:"token_length"`
}

type RateLimitConfig struct {
	MaxRequests int    `mapstructure:"max_requests"`
	WindowMs    int    `mapstructure:"window_ms"`
	Algorithm   string `mapstructure:"algorithm"` // "token_bucket", "sliding_window"
}

// Load reads configFile (if non-empty) as YAML, overlays SPIDER_-prefixed
// environment variables (e.g. SPIDER_ADDR overrides addr), and returns the
// merged Config. An empty configFile is not an error: defaults plus env
// vars still apply. A named configFile that cannot be read is an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("spider")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("preset", "default")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HTTP1Config resolves the configured preset name to an *http1.Config.
func (c *Config) HTTP1Config() *http1.Config {
	switch c.Preset {
	case "development":
		return http1.DevelopmentConfig()
	case "strict":
		return http1.StrictConfig()
	default:
		return http1.DefaultConfig()
	}
}

// Middlewares builds the configured middleware chain, in a fixed order
// (CORS, CSRF, RateLimit) applied outermost-first; nil sections are
// skipped entirely rather than applied with zero-value defaults, so an
// operator who doesn't mention "cors:" in the config file gets no CORS
// middleware at all.
func (c *Config) Middlewares() middleware.Middleware {
	chain := middleware.Identity()

	if c.CORS != nil {
		chain = middleware.AndThen(chain, middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			AllowCredentials: c.CORS.AllowCredentials,
			MaxAge:           c.CORS.MaxAge,
		}))
	}

	if c.CSRF != nil {
		cfg := middleware.DefaultCSRFConfig()
		if c.CSRF.CookieName != "" {
			cfg.CookieName = c.CSRF.CookieName
		}
		if c.CSRF.HeaderName != "" {
			cfg.HeaderName = c.CSRF.HeaderName
		}
		if c.CSRF.TokenLength > 0 {
			cfg.TokenLength = c.CSRF.TokenLength
		}
		chain = middleware.AndThen(chain, middleware.CSRF(cfg))
	}

	if c.RateLimit != nil {
		algo := middleware.TokenBucket
		if c.RateLimit.Algorithm == "sliding_window" {
			algo = middleware.SlidingWindow
		}
		chain = middleware.AndThen(chain, middleware.RateLimit(middleware.RateLimitConfig{
			MaxRequests: c.RateLimit.MaxRequests,
			WindowMs:    c.RateLimit.WindowMs,
			Algorithm:   algo,
		}))
	}

	return chain
}

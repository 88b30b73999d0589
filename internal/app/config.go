package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config is the API server configuration. Values come from PIZZA_-prefixed
// environment variables, flags or YAML files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (PIZZA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL prepended to relative product image paths" flag:"image-base-url"`
	MaxBodyBytes int64  `default:"1048576" usage:"Maximum request body size in bytes" flag:"max-body-bytes"`
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// RateLimitConfig controls the per-client sliding window limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls cross-origin access for the storefront web client.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials" flag:"cors-credentials"`
}

// GracefulConfig controls shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads the configuration and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PIZZA",
		Files:     []string{"config.yaml", "/etc/pizza/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set PIZZA_DATABASE_URL or DATABASE_URL")
	case c.MaxBodyBytes <= 0:
		return errors.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.Errorf("rate limit needs a positive max and window, got %d per %s", c.RateLimit.Max, c.RateLimit.Window)
	case len(c.CORS.Origins) == 0:
		return errors.New("at least one CORS origin is required")
	}
	return nil
}

// applyPlatformDefaults honours the DATABASE_URL and PORT variables that
// hosting platforms inject without our prefix.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

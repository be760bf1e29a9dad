package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// EnvProduction is the APP_ENV value for production deployments.
	EnvProduction = "production"

	// DevJWTSecret is used when JWT_SECRET is unset outside production.
	DevJWTSecret = "your-secret-key"
)

// ErrMissingSecret is returned by Load when a production deployment has no real JWT secret.
var ErrMissingSecret = errors.New("JWT_SECRET must be set in production")

// Config holds the application configuration.
type Config struct {
	ServerPort int    `env:"PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	DatabasePath      string        `env:"DATABASE_PATH" envDefault:"./auth.db"`
	DBReconnectDelay  time.Duration `env:"DB_RECONNECT_DELAY" envDefault:"5s"`
	DBHealthCheckSpec string        `env:"DB_HEALTHCHECK" envDefault:"@every 30s"`

	JWTSecret string `env:"JWT_SECRET"`
	JWTExpire string `env:"JWT_EXPIRE" envDefault:"7d"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	TokenCookie    bool     `env:"TOKEN_COOKIE" envDefault:"false"`

	// TokenTTL is JWTExpire parsed by Load.
	TokenTTL time.Duration `env:"-"`
	// UsingDevSecret is set when DevJWTSecret was substituted for a missing JWT_SECRET.
	UsingDevSecret bool `env:"-"`
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Load reads a .env file if one exists, then parses the environment into a Config.
// Variables already present in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	ttl, err := ParseExpiry(cfg.JWTExpire)
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRE: %w", err)
	}
	cfg.TokenTTL = ttl

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		cfg.JWTSecret = DevJWTSecret
		cfg.UsingDevSecret = true
	} else if cfg.IsProduction() && cfg.JWTSecret == DevJWTSecret {
		return nil, ErrMissingSecret
	}

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	cfg.AllowedOrigins = origins

	return cfg, nil
}

// ParseExpiry parses a token lifetime. It accepts Go durations ("12h") and
// whole days ("7d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry must be positive, got %s", s)
	}
	return d, nil
}

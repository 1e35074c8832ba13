package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultCooldown is used when COOLDOWN_PERIOD is unset or unparseable.
const DefaultCooldown = time.Hour

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	App    AppConfig
	Claim  ClaimConfig
	Auth   AuthConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"5000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default credentials are for local development only.
// In production, set DB_PASSWORD via environment variable and
// DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	Port       int    `envconfig:"DB_PORT" default:"5432"`
	User       string `envconfig:"DB_USER" default:"postgres"`
	Password   string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name       string `envconfig:"DB_NAME" default:"coupon_db"`
	SSLMode    string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns   int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns   int    `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries int    `envconfig:"DB_MAX_RETRIES" default:"5"` // connection attempts at startup
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AppConfig holds environment-level configuration. The environment flag
// only controls whether internal error detail is echoed back to callers;
// production responses stay generic.
type AppConfig struct {
	Env string `envconfig:"APP_ENV" default:"production"`
}

// Development reports whether the app runs in development mode.
func (c AppConfig) Development() bool {
	return c.Env == "development"
}

// ClaimConfig holds claim and throttling configuration.
type ClaimConfig struct {
	// CooldownPeriod is the cooldown window in milliseconds. It is kept
	// as a string so that an unset or garbage value degrades to the
	// default instead of failing config load.
	CooldownPeriod   string `envconfig:"COOLDOWN_PERIOD" default:""`
	SessionCookieTTL int    `envconfig:"SESSION_COOKIE_TTL_DAYS" default:"365"`
	MaxRetries       int    `envconfig:"CLAIM_MAX_RETRIES" default:"3"`
}

// Cooldown returns the configured cooldown window, falling back to
// DefaultCooldown when COOLDOWN_PERIOD is absent, non-numeric, or
// non-positive.
func (c ClaimConfig) Cooldown() time.Duration {
	ms, err := strconv.ParseInt(c.CooldownPeriod, 10, 64)
	if err != nil || ms <= 0 {
		return DefaultCooldown
	}
	return time.Duration(ms) * time.Millisecond
}

// SessionTTL returns the lifetime of the session cookie.
func (c ClaimConfig) SessionTTL() time.Duration {
	days := c.SessionCookieTTL
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// AuthConfig holds the admin access token. Authorization itself lives
// outside this service; the token gate is only its boundary.
type AuthConfig struct {
	AdminToken string `envconfig:"ADMIN_TOKEN" default:""`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full server configuration, populated from environment
// variables with the PAGEBRIDGE prefix.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"8600"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// SessionConfig holds per-session limits.
type SessionConfig struct {
	// MaxSessions caps concurrent connections; zero means unlimited.
	MaxSessions int `envconfig:"MAX_SESSIONS" default:"0"`
	// EvalTimeout bounds a single evaluation; zero disables the bound.
	EvalTimeout time.Duration `envconfig:"EVAL_TIMEOUT" default:"2m"`
	// EvalRPS throttles evaluate frames per session; zero disables.
	EvalRPS   float64 `envconfig:"EVAL_RPS" default:"0"`
	EvalBurst int     `envconfig:"EVAL_BURST" default:"10"`
}

// LoggingConfig selects level and format.
type LoggingConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-IP throttling settings.
type RateLimitConfig struct {
	Enabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst   int     `envconfig:"RATE_LIMIT_BURST" default:"200"`
}

// Default returns the configuration with every field at its default,
// ignoring the environment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8600",
			ShutdownTimeout: 10 * time.Second,
		},
		Session: SessionConfig{
			MaxSessions: 0,
			EvalTimeout: 2 * time.Minute,
			EvalRPS:     0,
			EvalBurst:   10,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     100,
			Burst:   200,
		},
	}
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("pagebridge", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault reads configuration from the environment, falling back
// to defaults on error.
func LoadOrDefault() Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive, got %v", c.RateLimit.RPS)
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("max sessions must not be negative, got %d", c.Session.MaxSessions)
	}
	if c.Session.EvalRPS < 0 {
		return fmt.Errorf("eval rps must not be negative, got %v", c.Session.EvalRPS)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

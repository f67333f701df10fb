// Package config loads process configuration from an optional YAML file and
// PQAUTH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix     = "PQAUTH"
	configPathEnv = "PQAUTH_CONFIG"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full process configuration
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
	Events  EventsConfig  `mapstructure:"events"`
	Log     LogConfig     `mapstructure:"log"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type AuthConfig struct {
	Issuer             string        `mapstructure:"issuer"`
	ChallengeTTL       time.Duration `mapstructure:"challenge_ttl"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	ChallengeRetention time.Duration `mapstructure:"challenge_retention"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	RedisURL   string `mapstructure:"redis_url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// EventsConfig enables publishing to Redis streams. It requires a Redis URL.
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DemoConfig enables the demo identity and /debug/sign. Never enable in production.
type DemoConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":9000")
	v.SetDefault("auth.issuer", "pqauth")
	v.SetDefault("auth.challenge_ttl", 5*time.Minute)
	v.SetDefault("auth.session_ttl", time.Hour)
	v.SetDefault("auth.challenge_retention", 10*time.Minute)
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.sqlite_path", "data/pqauth.db")
	v.SetDefault("events.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("demo.enabled", false)
}

// Load reads configuration. path may be empty, in which case PQAUTH_CONFIG is
// consulted; with neither set only defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.Auth.ChallengeTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.challenge_ttl must be positive, got %s", c.Auth.ChallengeTTL))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.session_ttl must be positive, got %s", c.Auth.SessionTTL))
	}
	if c.Auth.ChallengeRetention < 0 {
		errs = append(errs, fmt.Errorf("auth.challenge_retention must not be negative, got %s", c.Auth.ChallengeRetention))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for the redis backend"))
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.Events.Enabled && c.Storage.RedisURL == "" {
		errs = append(errs, errors.New("events.enabled requires storage.redis_url"))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Storage.Backend == BackendRedis || c.Events.Enabled
}

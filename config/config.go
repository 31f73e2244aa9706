package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ErrConfigNotFound is returned when an explicitly requested config file
// does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// EnvPrefix prefixes every environment override, e.g. CDAPLUS_STORAGE_DRIVER.
const EnvPrefix = "CDAPLUS"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	v *viper.Viper
}

// ServerConfig represents HTTP server settings
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	AccessLog bool   `mapstructure:"access_log"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, sqlite, duckdb, memory
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig holds the Basic auth credentials. The password is stored as a
// bcrypt hash.
type AuthConfig struct {
	User         string `mapstructure:"user"`
	PasswordHash string `mapstructure:"password_hash"`
}

// RateLimitConfig represents the API token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			AccessLog: true,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "./data/cdaplus.sqlite",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.access_log", c.Server.AccessLog)
	v.SetDefault("storage.driver", c.Storage.Driver)
	v.SetDefault("storage.dsn", c.Storage.DSN)
	v.SetDefault("auth.user", c.Auth.User)
	v.SetDefault("auth.password_hash", c.Auth.PasswordHash)
	v.SetDefault("rate_limit.requests_per_second", c.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", c.RateLimit.Burst)
	v.SetDefault("logging.level", c.Logging.Level)
}

// Load reads configFile on top of the defaults, then applies environment
// overrides. With an empty configFile, ./cdaplus.yaml is used when present
// and defaults otherwise.
func Load(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cdaplus")
		v.AddConfigPath(".")
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.v = v
	return config, nil
}

// File returns the config file in use, or "" when running on defaults.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded configuration whenever the config
// file is written. It is a no-op without a config file.
func (c *Config) Watch(onChange func(*Config)) {
	if c.File() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next := DefaultConfig()
		if err := c.v.Unmarshal(next); err != nil {
			slog.Error("reloading config", "file", e.Name, "error", err)
			return
		}
		next.v = c.v
		slog.Info("config reloaded", "file", e.Name)
		onChange(next)
	})
	c.v.WatchConfig()
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logging.level %q: %w", s, err)
	}
	return l, nil
}

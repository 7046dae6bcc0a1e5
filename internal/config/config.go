package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config is the server configuration. Zero fields fall back to the
// defaults of the component that owns them.
type Config struct {
	Port int `yaml:"port"`

	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	NATS    NATSConfig    `yaml:"nats"`
	Auth    AuthConfig    `yaml:"auth"`
	Rooms   RoomsConfig   `yaml:"rooms"`
	WS      WSConfig      `yaml:"ws"`
}

// LogConfig selects the log level and handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // json or text
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Type     string `yaml:"type"`
	RedisURL string `yaml:"redis_url"`
}

// NATSConfig enables result publishing when URL is set
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// AuthConfig holds session settings
type AuthConfig struct {
	SessionDuration time.Duration `yaml:"session_duration"`
}

// RoomsConfig holds room registry settings
type RoomsConfig struct {
	PasswordCost int `yaml:"password_cost"`
}

// WSConfig holds websocket settings
type WSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	SendBufferSize int      `yaml:"send_buffer_size"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		Port: 8080,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Type: StorageMemory,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Storage.RedisURL = v
	}
	if v := getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := getenv("NATS_SUBJECT"); v != "" {
		c.NATS.Subject = v
	}
	if v := getenv("SESSION_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_DURATION: %w", err)
		}
		c.Auth.SessionDuration = d
	}
	if v := getenv("ROOM_PASSWORD_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROOM_PASSWORD_COST: %w", err)
		}
		c.Rooms.PasswordCost = cost
	}
	if v := getenv("WS_ALLOWED_ORIGINS"); v != "" {
		c.WS.AllowedOrigins = splitList(v)
	}
	return nil
}

// Validate checks settings that cannot be defaulted
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Storage.Type {
	case "", StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("redis_url required when storage type is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by DefaultConfig
const (
	EnvServer    = "BBATTLE_SERVER"
	EnvToken     = "BBATTLE_TOKEN"
	EnvTokenFile = "BBATTLE_TOKEN_FILE"
)

const defaultServerURL = "http://localhost:8080"

// Config holds CLI configuration. Token is the session every HTTP, SSE and
// websocket call presents; it is loaded lazily from TokenFile.
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config seeded from the environment
func DefaultConfig() *Config {
	cfg := &Config{
		ServerURL: defaultServerURL,
		Token:     os.Getenv(EnvToken),
		TokenFile: filepath.Join(".bbattle", "token"),
		Output:    "text",
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.TokenFile = filepath.Join(home, ".bbattle", "token")
	}
	if v := os.Getenv(EnvServer); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(EnvTokenFile); v != "" {
		cfg.TokenFile = v
	}
	return cfg
}

// endpoint resolves an API path against the server. With ws set the scheme
// becomes ws or wss and the session token rides along as a query parameter,
// since browsers and dialers cannot set headers on the upgrade.
func (c *Config) endpoint(path string, ws bool) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(c.ServerURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	if !ws {
		return u, nil
	}

	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	if c.Token != "" {
		q := u.Query()
		q.Set("token", c.Token)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// LoadToken reads the token file unless a token was given directly.
// A missing file means no session.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}
	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	c.Token = strings.TrimSpace(string(data))
	return nil
}

// remember makes result the active session and persists its token
func (c *Config) remember(result AuthResult) error {
	c.Token = result.SessionToken
	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := os.WriteFile(c.TokenFile, []byte(result.SessionToken), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// forget drops the active session and its token file
func (c *Config) forget() error {
	c.Token = ""
	if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

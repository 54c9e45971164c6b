package dremio

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Environment fallbacks mirror the conventions of the Dremio tooling
// this module talks to.
const (
	envURL       = "DREMIO_URL"
	envToken     = "DREMIO_TOKEN"
	envTokenFile = "DREMIO_TOKEN_FILE"
	envScheme    = "DREMIO_AUTH_SCHEME"

	defaultScheme    = "_dremio"
	defaultTokenFile = "token.txt"
	defaultTimeout   = 30 * time.Second
)

// Config holds the connection settings for a Dremio cluster.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	TokenFile string        `yaml:"token_file"`
	Scheme    string        `yaml:"scheme"`
	Timeout   time.Duration `yaml:"timeout"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.BaseURL != "" {
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}
}

// resolve fills unset fields from the environment. Token resolution
// precedence: explicit token, DREMIO_TOKEN, token_file, DREMIO_TOKEN_FILE,
// then ./token.txt.
func (c *Config) resolve() error {
	if c.BaseURL == "" {
		c.BaseURL = strings.TrimRight(os.Getenv(envURL), "/")
	}
	if c.Scheme == "" {
		c.Scheme = os.Getenv(envScheme)
	}
	if c.Scheme == "" {
		c.Scheme = defaultScheme
	}

	if c.Token == "" {
		c.Token = os.Getenv(envToken)
	}
	if c.Token == "" {
		file := c.TokenFile
		if file == "" {
			file = os.Getenv(envTokenFile)
		}
		if file == "" {
			file = defaultTokenFile
		}
		token, err := loadTokenFile(file)
		if err != nil {
			return err
		}
		c.Token = token
	}
	return nil
}

// loadTokenFile reads a personal access token from a file, stripped of
// surrounding whitespace. A missing default token file is not an error;
// validation catches the empty token later with a fuller message.
func loadTokenFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("backend.dremio: reading token file %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// validate returns an error if required fields are missing.
func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("backend.dremio: base_url is required (or set %s)", envURL)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.dremio: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.dremio: base_url scheme must be http or https, got %q", u.Scheme)
	}
	if c.Token == "" {
		return fmt.Errorf("backend.dremio: no token provided; set token, %s, token_file, %s, or put the token in ./%s",
			envToken, envTokenFile, defaultTokenFile)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultIssuer is the fixed minting authority string. Issuer and edge
	// must agree on it; tokens carrying anything else are rejected.
	DefaultIssuer = "https://bagcamp.com"

	// DefaultCookieName is the cookie carrying the download token.
	DefaultCookieName = "download_token"

	// DefaultWindow is the token validity window. It has to absorb clock
	// skew between issuer and edge plus the client redirect latency.
	DefaultWindow = 5 * time.Minute
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Edge     EdgeConfig     `yaml:"edge"`
	Download DownloadConfig `yaml:"download"`
	Catalog  BackendConfig  `yaml:"catalog"`
	Events   BackendConfig  `yaml:"events"`
}

// ServerConfig configures the origin issuer API.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// DevMode drops the Secure attribute from cookies for local work
	// over plain HTTP.
	DevMode bool `yaml:"dev_mode"`
}

// EdgeConfig configures the edge verifier.
type EdgeConfig struct {
	Addr string `yaml:"addr"`

	// Upstream is the base URL of the storage origin the edge fronts.
	Upstream string `yaml:"upstream"`
}

// DownloadConfig is the token contract shared by issuer and edge.
type DownloadConfig struct {
	// Domain is the base URL of the delivery edge
	// (e.g. "https://media.bagcamp.com"). Its hostname becomes the
	// token audience.
	Domain string `yaml:"domain"`

	// Issuer identifies the minting authority.
	Issuer string `yaml:"issuer"`

	// CookieName carries the token to the edge.
	CookieName string `yaml:"cookie_name"`

	// Window is the token validity duration.
	Window time.Duration `yaml:"window"`
}

// Hostname returns the delivery hostname used as the token audience.
func (d DownloadConfig) Hostname() (string, error) {
	u, err := url.Parse(d.Domain)
	if err != nil {
		return "", fmt.Errorf("parsing download domain: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("download domain %q has no hostname", d.Domain)
	}
	return u.Hostname(), nil
}

// BackendConfig selects a pluggable backend (catalog, events) by type and
// captures the backend-specific fields inline.
type BackendConfig struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:",inline"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Edge.Addr == "" {
		c.Edge.Addr = ":8081"
	}
	if c.Download.Issuer == "" {
		c.Download.Issuer = DefaultIssuer
	}
	if c.Download.CookieName == "" {
		c.Download.CookieName = DefaultCookieName
	}
	if c.Download.Window == 0 {
		c.Download.Window = DefaultWindow
	}
	if c.Catalog.Type == "" {
		c.Catalog.Type = "memory"
	}
	if c.Events.Type == "" {
		c.Events.Type = "noop"
	}
}

func (c *Config) Validate() error {
	if c.Download.Domain == "" {
		return errors.New("download.domain is required")
	}
	if _, err := c.Download.Hostname(); err != nil {
		return err
	}
	if c.Download.Window < 0 {
		return errors.New("download.window must not be negative")
	}
	return nil
}

// Secrets hold key material provisioned out-of-band via environment,
// never via the config file.
type Secrets struct {
	// SigningSecret is the symmetric secret shared between the issuer
	// and the edge verifier.
	SigningSecret []byte

	// SessionSecret verifies session tokens on the origin API.
	SessionSecret []byte
}

func (s Secrets) Validate() error {
	if len(s.SigningSecret) == 0 {
		return errors.New("signing secret is not configured")
	}
	return nil
}

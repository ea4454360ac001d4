// ABOUTME: Configuration loading and parsing for querybot
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied to fields left empty in the config file.
const (
	DefaultHTTPAddr  = "127.0.0.1:3000"
	DefaultBaseURL   = "http://localhost:8000"
	DefaultTitle     = "Query Bot"
	DefaultViewTTL   = 30 * time.Minute
	DefaultTokenTTL  = time.Hour
	DefaultHostname  = "querybot"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config represents the complete querybot configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	AgentAPI  AgentAPIConfig  `yaml:"agent_api" toml:"agent_api"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	WebUI     WebUIConfig     `yaml:"webui" toml:"webui"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the local listener address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// AgentAPIConfig points at the remote agent service
type AgentAPIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"` // zero means no timeout

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// DatabaseConfig holds the client-local state database location
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// WebUIConfig holds chat page configuration
type WebUIConfig struct {
	Title    string        `yaml:"title" toml:"title"`
	ViewTTL  time.Duration `yaml:"-" toml:"-"`
	TokenTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ViewTTLRaw  string `yaml:"view_ttl" toml:"view_ttl"`
	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"` // serve on :443 with a tailnet certificate
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"` // optional JSON log file
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// Parse decodes raw configuration content. It expands environment
// variables, applies defaults and validates the result.
func Parse(data []byte, isTOML bool) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if isTOML {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if len(bytes.TrimSpace([]byte(expanded))) > 0 {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// ApplyDefaults fills empty fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.AgentAPI.BaseURL == "" {
		c.AgentAPI.BaseURL = DefaultBaseURL
	}
	c.AgentAPI.BaseURL = strings.TrimRight(c.AgentAPI.BaseURL, "/")
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(DataDir(), "querybot.db")
	}
	c.Database.Path = expandHome(c.Database.Path)
	if c.WebUI.Title == "" {
		c.WebUI.Title = DefaultTitle
	}
	if c.WebUI.ViewTTL == 0 {
		c.WebUI.ViewTTL = DefaultViewTTL
	}
	if c.WebUI.TokenTTL == 0 {
		c.WebUI.TokenTTL = DefaultTokenTTL
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = DefaultHostname
	}
	if c.Tailscale.StateDir != "" {
		c.Tailscale.StateDir = expandHome(c.Tailscale.StateDir)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.File != "" {
		c.Logging.File = expandHome(c.Logging.File)
	}
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.HTTPAddr); err != nil {
			return fmt.Errorf("server.http_addr %q is not a host:port address: %w", c.Server.HTTPAddr, err)
		}
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	u, err := url.Parse(c.AgentAPI.BaseURL)
	if err != nil {
		return fmt.Errorf("agent_api.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("agent_api.base_url must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("agent_api.base_url must include a host")
	}

	if c.AgentAPI.Timeout < 0 {
		return fmt.Errorf("agent_api.timeout must not be negative")
	}
	if c.WebUI.ViewTTL < 0 || c.WebUI.TokenTTL < 0 {
		return fmt.Errorf("webui ttls must not be negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"agent_api.timeout", cfg.AgentAPI.TimeoutRaw, &cfg.AgentAPI.Timeout},
		{"webui.view_ttl", cfg.WebUI.ViewTTLRaw, &cfg.WebUI.ViewTTL},
		{"webui.token_ttl", cfg.WebUI.TokenTTLRaw, &cfg.WebUI.TokenTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// ConfigPath returns the path to the config file.
// Priority: QUERYBOT_CONFIG env var > XDG_CONFIG_HOME/querybot/config.yaml > ~/.config/querybot/config.yaml
func ConfigPath() string {
	if envPath := os.Getenv("QUERYBOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "querybot", "config.yaml")
}

// DataDir returns the querybot data directory.
// Priority: XDG_DATA_HOME/querybot > ~/.local/share/querybot
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "querybot")
}

// LoadOrDefault loads path, or returns the defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:4000"

agent_api:
  base_url: "https://agents.example.com/"
  timeout: "45s"

database:
  path: "/tmp/querybot-test.db"

webui:
  title: "Team Bot"
  view_ttl: "10m"
  token_ttl: "2h"

tailscale:
  enabled: true
  hostname: "bot"
  ephemeral: true
  https: true

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:4000", cfg.Server.HTTPAddr)
	assert.Equal(t, "https://agents.example.com", cfg.AgentAPI.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.AgentAPI.Timeout)
	assert.Equal(t, "/tmp/querybot-test.db", cfg.Database.Path)
	assert.Equal(t, "Team Bot", cfg.WebUI.Title)
	assert.Equal(t, 10*time.Minute, cfg.WebUI.ViewTTL)
	assert.Equal(t, 2*time.Hour, cfg.WebUI.TokenTTL)
	assert.True(t, cfg.Tailscale.Enabled)
	assert.Equal(t, "bot", cfg.Tailscale.Hostname)
	assert.True(t, cfg.Tailscale.Ephemeral)
	assert.True(t, cfg.Tailscale.HTTPS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
http_addr = "127.0.0.1:3100"

[agent_api]
base_url = "http://localhost:9000"
timeout = "5s"

[webui]
view_ttl = "1h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:3100", cfg.Server.HTTPAddr)
	assert.Equal(t, "http://localhost:9000", cfg.AgentAPI.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.AgentAPI.Timeout)
	assert.Equal(t, time.Hour, cfg.WebUI.ViewTTL)
	assert.Equal(t, DefaultTokenTTL, cfg.WebUI.TokenTTL)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	path := writeConfig(t, "config.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Equal(t, DefaultBaseURL, cfg.AgentAPI.BaseURL)
	assert.Zero(t, cfg.AgentAPI.Timeout, "no timeout unless configured")
	assert.Equal(t, filepath.Join("/data", "querybot", "querybot.db"), cfg.Database.Path)
	assert.Equal(t, DefaultTitle, cfg.WebUI.Title)
	assert.Equal(t, DefaultViewTTL, cfg.WebUI.ViewTTL)
	assert.Equal(t, DefaultHostname, cfg.Tailscale.Hostname)
	assert.False(t, cfg.Tailscale.Enabled)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("QUERYBOT_TEST_API", "http://api.internal:8000")
	t.Setenv("QUERYBOT_TEST_KEY", "tskey-abc")

	path := writeConfig(t, "config.yaml", `
agent_api:
  base_url: "${QUERYBOT_TEST_API}"
tailscale:
  auth_key: "${QUERYBOT_TEST_KEY}"
  state_dir: "${QUERYBOT_TEST_UNSET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal:8000", cfg.AgentAPI.BaseURL)
	assert.Equal(t, "tskey-abc", cfg.Tailscale.AuthKey)
	assert.Empty(t, cfg.Tailscale.StateDir)
}

func TestLoad_HomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := writeConfig(t, "config.yaml", `
database:
  path: "~/bot/state.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "bot", "state.db"), cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			file:    "config.yaml",
			content: "server: [unclosed",
			wantErr: "parsing config file",
		},
		{
			name:    "invalid toml",
			file:    "config.toml",
			content: "[server\nhttp_addr = 1",
			wantErr: "parsing config file",
		},
		{
			name:    "bad duration",
			file:    "config.yaml",
			content: "agent_api:\n  timeout: \"soon\"\n",
			wantErr: "agent_api.timeout",
		},
		{
			name:    "negative timeout",
			file:    "config.yaml",
			content: "agent_api:\n  timeout: \"-5s\"\n",
			wantErr: "must not be negative",
		},
		{
			name:    "bad base url scheme",
			file:    "config.yaml",
			content: "agent_api:\n  base_url: \"ftp://example.com\"\n",
			wantErr: "http or https",
		},
		{
			name:    "bad http addr",
			file:    "config.yaml",
			content: "server:\n  http_addr: \"localhost\"\n",
			wantErr: "server.http_addr",
		},
		{
			name:    "bad log level",
			file:    "config.yaml",
			content: "logging:\n  level: \"loud\"\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			file:    "config.yaml",
			content: "logging:\n  format: \"xml\"\n",
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)

	_, err = LoadOrDefault(writeConfig(t, "config.yaml", "logging:\n  level: \"loud\"\n"))
	assert.Error(t, err)
}

func TestTailscaleSkipsHTTPAddrCheck(t *testing.T) {
	cfg := Default()
	cfg.Server.HTTPAddr = "not-an-addr"
	assert.Error(t, cfg.Validate())

	cfg.Tailscale.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("QUERYBOT_CONFIG", "/etc/querybot.yaml")
	assert.Equal(t, "/etc/querybot.yaml", ConfigPath())

	t.Setenv("QUERYBOT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "querybot", "config.yaml"), ConfigPath())
}

func TestDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg-data")
	assert.Equal(t, filepath.Join("/xdg-data", "querybot"), DataDir())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QB_A", "one")
	assert.Equal(t, "one-two-", expandEnvVars("${QB_A}-two-${QB_UNSET_VAR}"))
	assert.Equal(t, "no vars", expandEnvVars("no vars"))
}

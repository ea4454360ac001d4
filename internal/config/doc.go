// Package config handles configuration loading for querybot.
//
// # Overview
//
// Configuration is loaded from a YAML file (or TOML, when the file name
// ends in .toml) with environment variable expansion. Missing fields fall
// back to defaults, so an empty or absent file is a valid configuration.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from QUERYBOT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/querybot/config.yaml
//  3. ~/.config/querybot/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	tailscale:
//	  auth_key: "${TS_AUTHKEY}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	agent_api:
//	  timeout: "30s"
//	webui:
//	  view_ttl: "30m"
//
// An agent_api.timeout of zero (the default) leaves remote calls without a
// deadline.
//
// # Configuration Sections
//
//   - server: local HTTP listen address
//   - agent_api: remote agent service base URL and timeout
//   - database: SQLite file holding per-category thread ids
//   - webui: page title and view/form token lifetimes
//   - tailscale: optional tsnet listener on the tailnet
//   - logging: level, console format and optional JSON log file
//
// # Logging
//
// SetupLogger builds the process logger: a colorized console handler or JSON
// handler, fanned out to a JSON file when logging.file is set.
package config

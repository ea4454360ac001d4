// Package server wires querybot's components into a running HTTP service.
//
// # Overview
//
// A Server owns:
//
//   - the SQLite state store holding one thread id per agent category
//   - the agent service client
//   - the session store built on both
//   - the chat web UI and its view hub
//   - the HTTP listener, either plain TCP or a Tailscale tsnet node
//
// # Health
//
// GET /health probes the agent service and reports both sides:
//
//	{"status":"ok","message":"querybot is running","upstream":{"url":"...","status":"healthy"}}
//
// The response is 503 with status "degraded" when the agent service is
// unreachable.
//
// # Tailscale
//
// With tailscale.enabled the UI is served only on the tailnet, on :80 or,
// with tailscale.https, on :443 using certificates provisioned by Tailscale.
package server

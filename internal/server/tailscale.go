// ABOUTME: Optional tailnet listener so the chat UI can be reached from other tailnet devices
// ABOUTME: Builds the tsnet node from config and serves HTTP on :80 or HTTPS on :443

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/querybot/internal/config"
)

// tailnetStateFile is written by tsnet once the node has logged in.
const tailnetStateFile = "tailscaled.state"

// errNoAuthKey is returned when a node has never logged in and no key is set.
var errNoAuthKey = errors.New("tailnet login needs tailscale.auth_key or TS_AUTHKEY")

// tailnetStateDir gives each hostname its own node state under the data dir.
func tailnetStateDir(cfg config.TailscaleConfig) string {
	if cfg.StateDir != "" {
		return cfg.StateDir
	}
	return filepath.Join(config.DataDir(), "tsnet", cfg.Hostname)
}

// tailnetAuthKey picks the login key. A node whose state dir already holds a
// login needs no key.
func tailnetAuthKey(cfg config.TailscaleConfig, stateDir string) (string, error) {
	if cfg.AuthKey != "" {
		return cfg.AuthKey, nil
	}
	if key := os.Getenv("TS_AUTHKEY"); key != "" {
		return key, nil
	}
	if _, err := os.Stat(filepath.Join(stateDir, tailnetStateFile)); err == nil {
		return "", nil
	}
	return "", errNoAuthKey
}

// newTailnetNode prepares, but does not start, the tsnet node for cfg.
func newTailnetNode(cfg config.TailscaleConfig, logger *slog.Logger) (*tsnet.Server, error) {
	stateDir := tailnetStateDir(cfg)
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("preparing tailnet state in %s: %w", stateDir, err)
	}

	authKey, err := tailnetAuthKey(cfg, stateDir)
	if err != nil {
		return nil, err
	}

	return &tsnet.Server{
		Hostname:  cfg.Hostname,
		Dir:       stateDir,
		Ephemeral: cfg.Ephemeral,
		AuthKey:   authKey,
		Logf: func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	}, nil
}

// tailnetURL is the address other tailnet devices open the UI at.
func tailnetURL(status *ipnstate.Status, https bool) string {
	scheme := "http"
	if https {
		scheme = "https"
	}

	var host string
	if status != nil && status.Self != nil {
		host = strings.TrimSuffix(status.Self.DNSName, ".")
	}
	if host == "" && status != nil && len(status.TailscaleIPs) > 0 {
		host = status.TailscaleIPs[0].String()
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host + "/"
}

// setupTailscaleListener joins the tailnet and returns the UI listener.
// server.http_addr is not used in this mode.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	node, err := newTailnetNode(tsCfg, s.logger.With("component", "tsnet"))
	if err != nil {
		return nil, err
	}
	s.tsnetServer = node

	s.logger.Info("joining tailnet", "hostname", tsCfg.Hostname, "state_dir", node.Dir, "ephemeral", tsCfg.Ephemeral)
	status, err := node.Up(ctx)
	if err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("joining tailnet as %s: %w", tsCfg.Hostname, err)
	}

	if url := tailnetURL(status, tsCfg.HTTPS); url != "" {
		s.logger.Info("tailnet node ready", "url", url)
	} else {
		s.logger.Warn("tailnet node has no address yet", "hostname", tsCfg.Hostname)
	}

	if !tsCfg.HTTPS {
		ln, err := node.Listen("tcp", ":80")
		if err != nil {
			_ = node.Close()
			return nil, fmt.Errorf("serving on tailnet :80: %w", err)
		}
		return ln, nil
	}

	ln, err := node.Listen("tcp", ":443")
	if err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("serving on tailnet :443: %w", err)
	}
	lc, err := node.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = node.Close()
		return nil, fmt.Errorf("fetching tailnet certificates: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// ABOUTME: Server orchestrator wiring store, agent client, sessions and the chat UI
// ABOUTME: Owns the HTTP listener lifecycle and the /health endpoint

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/config"
	"github.com/2389/querybot/internal/session"
	"github.com/2389/querybot/internal/store"
	"github.com/2389/querybot/internal/webui"
)

// healthCheckTimeout bounds the upstream probe made by /health.
const healthCheckTimeout = 3 * time.Second

// Server orchestrates the querybot components.
type Server struct {
	config      *config.Config
	store       store.Store
	agents      *agentapi.Client
	sessions    *session.Store
	ui          *webui.UI
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger
}

// HealthResponse is served by GET /health.
type HealthResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Upstream UpstreamHealth `json:"upstream"`
}

// UpstreamHealth reports on the remote agent service.
type UpstreamHealth struct {
	URL     string `json:"url"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OpenStore opens the state database named by cfg. QUERYBOT_DB_PATH overrides
// the configured path.
func OpenStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("QUERYBOT_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// NewAgentClient builds the remote service client from cfg.
func NewAgentClient(cfg *config.Config, logger *slog.Logger) *agentapi.Client {
	return agentapi.New(cfg.AgentAPI.BaseURL,
		agentapi.WithTimeout(cfg.AgentAPI.Timeout),
		agentapi.WithLogger(logger.With("component", "agentapi")),
	)
}

// New creates a Server with a SQLite store opened from cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, s, logger), nil
}

// NewWithStore creates a Server over an existing store. The server takes
// ownership of s and closes it on Shutdown.
func NewWithStore(cfg *config.Config, s store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	agents := NewAgentClient(cfg, logger)
	sessions := session.New(s, agents)

	srv := &Server{
		config:   cfg,
		store:    s,
		agents:   agents,
		sessions: sessions,
		ui: webui.New(agents, sessions, webui.Config{
			Title:    cfg.WebUI.Title,
			ViewTTL:  cfg.WebUI.ViewTTL,
			TokenTTL: cfg.WebUI.TokenTTL,
		}),
		logger: logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", srv.handleHealth)
	srv.ui.RegisterRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupListener creates the HTTP listener (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address %s: %w", s.config.Server.HTTPAddr, err)
	}
	return ln, nil
}

// Run serves until ctx is canceled or the server fails.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		s.closeComponents()
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening",
			"addr", ln.Addr().String(),
			"agent_api", s.agents.BaseURL(),
		)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the server and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	errs = appendCloseError(errs, "store close", s.closeComponents())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

func (s *Server) closeComponents() error {
	s.ui.Close()
	return s.store.Close()
}

// handleHealth reports local liveness plus the agent service status.
// Responds 503 when the agent service cannot be reached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Message: "querybot is running",
		Upstream: UpstreamHealth{
			URL: s.agents.BaseURL(),
		},
	}
	status := http.StatusOK

	upstream, err := s.agents.Health(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Upstream.Status = "unreachable"
		resp.Upstream.Error = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		resp.Upstream.Status = upstream.Status
		resp.Upstream.Message = upstream.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}

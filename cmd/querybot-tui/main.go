// ABOUTME: Terminal client for the general, sports and finance agents
// ABOUTME: Shares the config, thread store and agent client with the web UI

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/2389/querybot/internal/config"
	"github.com/2389/querybot/internal/server"
	"github.com/2389/querybot/internal/session"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $QUERYBOT_CONFIG or ~/.config/querybot/config.yaml)")
	agentURL := flag.String("agent-url", "", "Agent service base URL (overrides config)")
	flag.Parse()

	if err := run(*configPath, *agentURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, agentURL string) error {
	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if agentURL != "" {
		cfg.AgentAPI.BaseURL = agentURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid agent url: %w", err)
		}
	}

	// The terminal belongs to bubbletea, so logs only go to the configured file
	logger, closeLog, err := config.SetupLogger(cfg.Logging, nil)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	kv, err := server.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	agents := server.NewAgentClient(cfg, logger)
	sessions := session.New(kv, agents)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := newModel(ctx, agents, sessions, terminalRenderer, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running terminal ui: %w", err)
	}
	return nil
}

func terminalRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

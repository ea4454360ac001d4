// ABOUTME: Entry point for the querybot chat client
// ABOUTME: Serves the chat pages and manages stored conversation threads

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/querybot/internal/agentapi"
	"github.com/2389/querybot/internal/config"
	"github.com/2389/querybot/internal/server"
	"github.com/2389/querybot/internal/session"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                  _           _
   __ _ _   _  ___ _ __ _   _   | |__   ___ | |_
  / _' | | | |/ _ \ '__| | | |  | '_ \ / _ \| __|
 | (_| | |_| |  __/ |  | |_| |  | |_) | (_) | |_
  \__, |\__,_|\___|_|   \__, |  |_.__/ \___/ \__|
     |_|                |___/
`

func usage() {
	fmt.Println("Usage: querybot <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve              Start the chat web UI")
	fmt.Println("  init               Create a new config file interactively")
	fmt.Println("  health             Check the running server and agent service")
	fmt.Println("  threads            List stored conversation threads")
	fmt.Println("  clear <category>   Clear the stored thread for general, sports or finance")
	fmt.Println("  version            Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "threads":
		err = runThreads(ctx)
	case "clear":
		err = runClear(ctx, os.Args[2:])
	case "version", "--version", "-v":
		fmt.Println(version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.ConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := config.SetupLogger(cfg.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closeLog()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Agent API: %s\n", cfg.AgentAPI.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.HTTPS {
			yellow.Print(" [https]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("Open:      http://%s/\n", cfg.Server.HTTPAddr)
	}

	fmt.Println()

	// Components log through the default logger
	slog.SetDefault(logger)

	logger.Info("starting querybot",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"agent_api", cfg.AgentAPI.BaseURL,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var health server.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response (status %d): %w", resp.StatusCode, err)
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Printf("querybot:  ")
	green.Println(health.Message)
	fmt.Printf("agent api: %s ", health.Upstream.URL)
	if health.Upstream.Error != "" {
		red.Printf("%s (%s)\n", health.Upstream.Status, health.Upstream.Error)
	} else {
		green.Println(health.Upstream.Status)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func runThreads(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := server.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	threads, err := session.New(s, nil).List(ctx)
	if err != nil {
		return err
	}

	if len(threads) == 0 {
		fmt.Println("No stored threads.")
		return nil
	}

	categories := make([]string, 0, len(threads))
	for c := range threads {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	cyan := color.New(color.FgCyan)
	for _, c := range categories {
		cyan.Printf("  %-8s ", c)
		fmt.Println(threads[agentapi.Category(c)])
	}
	return nil
}

func runClear(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: querybot clear <general|sports|finance>")
	}
	category, err := agentapi.ParseCategory(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.LoadOrDefault(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := config.SetupLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	s, err := server.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	sessions := session.New(s, server.NewAgentClient(cfg, logger))
	threadID, ok := sessions.Load(ctx, category)
	if !ok {
		fmt.Printf("No stored thread for %s.\n", category)
		return nil
	}

	yellow := color.New(color.FgYellow)
	if err := sessions.ClearRemote(ctx, category, threadID); err != nil {
		yellow.Printf("  ! Agent service did not confirm deletion: %v\n", err)
	}
	if err := sessions.Clear(ctx, category); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("  ✓ Cleared %s thread %s\n", category, threadID)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("querybot configuration setup")
	fmt.Println("============================")
	fmt.Println()

	defaultDbPath := filepath.Join(config.DataDir(), "querybot.db")

	outputFile := prompt(reader, "Config file path", config.ConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Agent Service ---")
	baseURL := prompt(reader, "Agent API base URL", config.DefaultBaseURL)
	timeout := prompt(reader, "Request timeout (0s for none)", "0s")
	if _, err := time.ParseDuration(timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Tailscale Configuration ---")
	tailscaleEnabled := isYes(prompt(reader, "Enable Tailscale?", "no"))

	var tsHostname string
	var tsEphemeral, tsHTTPS bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", config.DefaultHostname)
		tsEphemeral = isYes(prompt(reader, "Ephemeral node?", "no"))
		tsHTTPS = isYes(prompt(reader, "Serve HTTPS with tailnet certificates?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", config.DefaultLogLevel)
	logFormat := prompt(reader, "Log format (text/json)", config.DefaultLogFormat)

	var cfg strings.Builder
	cfg.WriteString("# querybot configuration\n")
	cfg.WriteString("# Generated by querybot init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("agent_api:\n")
	cfg.WriteString(fmt.Sprintf("  base_url: %q\n", baseURL))
	cfg.WriteString(fmt.Sprintf("  timeout: %q\n", timeout))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("webui:\n")
	cfg.WriteString(fmt.Sprintf("  title: %q\n", config.DefaultTitle))
	cfg.WriteString("  view_ttl: \"30m\"\n")
	cfg.WriteString("  token_ttl: \"1h\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", tsHostname))
		cfg.WriteString("  auth_key: \"${TS_AUTHKEY}\"\n")
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		cfg.WriteString(fmt.Sprintf("  https: %t\n", tsHTTPS))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	// Reject anything the loader would refuse before writing it
	if _, err := config.Parse([]byte(cfg.String()), false); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  querybot serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

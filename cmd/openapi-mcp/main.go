package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/openapi-mcp/internal/app"
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP = flag.Int("p", 0, "Server port (shorthand)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	transport   = flag.String("transport", "", "Transport: stdio or http (overrides config)")
	stdio       = flag.Bool("stdio", false, "Use stdio transport (shorthand for -transport stdio)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion {
		fmt.Printf("openapi-mcp version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}
	finalTransport := *transport
	if *stdio {
		finalTransport = "stdio"
	}

	// Auto-discover config file if not specified.
	if len(configFiles) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				configFiles = append(configFiles, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply CLI flag overrides (highest priority)
	config.ApplyFlagOverrides(cfg, finalPort, *serverHost, finalTransport)

	logger := common.NewLoggerFromConfig(cfg.Logging)

	logger.Info().
		Str("transport", cfg.Server.Transport).
		Str("environment", cfg.MCP.Environment).
		Strs("tools", cfg.MCP.Tools).
		Str("config_files", fmt.Sprintf("%v", configFiles)).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	switch cfg.Server.Transport {
	case "stdio":
		runStdio(application, logger)
	case "http":
		runHTTP(ctx, application, logger)
	default:
		logger.Error().Str("transport", cfg.Server.Transport).Msg("unknown transport, expected stdio or http")
		os.Exit(1)
	}
}

// runStdio serves MCP over stdin/stdout until the client disconnects or a signal arrives.
func runStdio(application *app.App, logger *common.Logger) {
	logger.Info().Msg("serving MCP over stdio")
	if err := mcpserver.ServeStdio(application.MCPHandler.MCPServer()); err != nil {
		logger.Error().Err(err).Msg("stdio server error")
		os.Exit(1)
	}
}

// runHTTP serves /mcp and the API routes until ctx is cancelled, then shuts down gracefully.
func runHTTP(ctx context.Context, application *app.App, logger *common.Logger) {
	srv := server.New(application)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			logger.Error().Err(err).Msg("server failed to start")
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried first, with CWD fallbacks after.
// Paths are deduplicated via filepath.Abs.
func configSearchPaths() []string {
	candidates := []string{
		"openapi-mcp.toml",
		"config/openapi-mcp.toml",
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "openapi-mcp.toml"),
		filepath.Join(binDir, "config", "openapi-mcp.toml"),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/handlers"
	"github.com/bobmcallan/openapi-mcp/internal/mcp"
	"github.com/bobmcallan/openapi-mcp/internal/metrics"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Metrics *metrics.Collector

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	MCPHandler     *mcp.Handler
}

// New initializes the application: it loads every enabled integration and
// builds the MCP server and the HTTP handlers around it.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.IsProduction() {
		logger.Warn().Msg("using PRODUCTION base URLs, tool calls reach live systems")
	} else if cfg.MCP.Environment != "sandbox" && cfg.MCP.Environment != "" {
		logger.Warn().
			Str("environment", cfg.MCP.Environment).
			Msg("unrecognized environment value, defaulting to sandbox behavior")
	}
	if len(cfg.EnabledIntegrations()) == 0 {
		logger.Warn().Strs("tools", cfg.MCP.Tools).Msg("no integrations enabled, only get_version will be available")
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewCollector()
	}

	mcpHandler, err := mcp.NewHandler(ctx, cfg, logger, a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build MCP server: %w", err)
	}
	a.MCPHandler = mcpHandler

	a.initHandlers()

	logger.Info().Int("tools", mcpHandler.ToolCount()).Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.MCPHandler)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}

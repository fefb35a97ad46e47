package mcp

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/metrics"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
)

// maxConcurrentLoads bounds how many specifications are read and compiled at once.
const maxConcurrentLoads = 4

// Handler owns the MCP server and serves it over streamable HTTP.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	names      *Names
}

// loaded is one integration after compilation.
type loaded struct {
	name   string
	env    config.Environment
	result CompileResult
}

// NewHandler loads every enabled integration, compiles its specification and
// registers the resulting tools. An integration that cannot be loaded is
// logged and skipped.
func NewHandler(ctx context.Context, cfg *config.Config, logger *common.Logger, m *metrics.Collector) (*Handler, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		common.GetVersion(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithElicitation(),
		mcpserver.WithRecovery(),
	)

	redactor, err := NewRedactor(cfg.Redaction)
	if err != nil {
		return nil, err
	}
	names := NewNames()
	registry := NewRegistry(
		mcpSrv,
		names,
		NewElicitation(mcpSrv, cfg.MCP.Elicitation, logger, m),
		NewProxy(cfg.HTTP, redactor, logger),
		m,
		logger,
	)

	integrations := cfg.EnabledIntegrations()
	results := make([]*loaded, len(integrations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, ic := range integrations {
		g.Go(func() error {
			results[i] = loadIntegration(gctx, ic, i, cfg.IsProduction(), logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	toolCount := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		registered := 0
		for _, ep := range res.result.Endpoints {
			if _, err := registry.Register(ep, res.env); err != nil {
				logger.Warn().Str("integration", res.name).Str("title", ep.Title).Err(err).Msg("failed to register tool")
				continue
			}
			registered++
		}
		m.RecordCompilation(res.name, registered, res.result.Failures)
		logger.Info().
			Str("integration", res.name).
			Int("tools", registered).
			Int("skipped_operations", res.result.Failures).
			Msg("integration loaded")
		toolCount += registered
	}

	mcpSrv.AddTool(VersionTool(), VersionToolHandler(names))

	// Elicitation replies arrive on later requests, so sessions must outlive a single POST.
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithStateful(true))

	logger.Info().
		Int("tools", toolCount).
		Int("integrations", len(integrations)).
		Bool("elicitation", cfg.MCP.Elicitation).
		Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
		names:      names,
	}, nil
}

// loadIntegration reads, checks and compiles one specification. It returns nil
// when the integration has to be skipped.
func loadIntegration(ctx context.Context, ic config.IntegrationConfig, index int, production bool, logger *common.Logger) *loaded {
	data, err := os.ReadFile(ic.Spec)
	if err != nil {
		logger.Warn().Str("integration", ic.Name).Str("spec", ic.Spec).Err(err).Msg("skipping integration, specification not readable")
		return nil
	}

	var spec map[string]any
	if ic.SkipValidation {
		spec, err = openapi.Decode(data)
		if err != nil {
			logger.Warn().Str("integration", ic.Name).Err(err).Msg("skipping integration, specification not decodable")
			return nil
		}
	} else {
		res := openapi.Validate(ctx, data)
		if !res.Valid {
			logger.Warn().Str("integration", ic.Name).Str("errors", strings.Join(res.Errors, "; ")).Msg("skipping integration, invalid OpenAPI document")
			return nil
		}
		spec = res.Specification
	}
	if !openapi.HasPaths(spec) {
		logger.Warn().Str("integration", ic.Name).Msg("skipping integration, specification has no paths")
		return nil
	}

	id := openapi.ID(spec, index)
	env := config.BuildEnvironment(ic, production, logger)
	result := Compile(spec, id, env, logger)

	logger.Debug().
		Str("integration", ic.Name).
		Str("spec_id", id).
		Int("endpoints", len(result.Endpoints)).
		Msg("specification compiled")

	return &loaded{name: ic.Name, env: env, result: result}
}

// MCPServer returns the underlying server, used by the stdio transport.
func (h *Handler) MCPServer() *mcpserver.MCPServer {
	return h.server
}

// ToolCount returns the number of generated tools, get_version excluded.
func (h *Handler) ToolCount() int {
	return h.names.Len()
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.streamable == nil {
		http.Error(w, fmt.Sprintf("%s: MCP server not initialised", http.StatusText(http.StatusServiceUnavailable)), http.StatusServiceUnavailable)
		return
	}
	h.streamable.ServeHTTP(w, r)
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/metrics"
)

// Registry exposes compiled endpoints as tools on an MCP server.
type Registry struct {
	server      *server.MCPServer
	names       *Names
	elicitation *Elicitation
	proxy       *Proxy
	metrics     *metrics.Collector
	logger      *common.Logger
}

// NewRegistry wires the call path for every tool it registers.
func NewRegistry(s *server.MCPServer, names *Names, elicitation *Elicitation, proxy *Proxy, m *metrics.Collector, logger *common.Logger) *Registry {
	return &Registry{
		server:      s,
		names:       names,
		elicitation: elicitation,
		proxy:       proxy,
		metrics:     m,
		logger:      logger,
	}
}

// Register reserves a unique title for ep, then adds a tool named after the
// dashed title. It returns the tool name.
func (r *Registry) Register(ep *Endpoint, env config.Environment) (string, error) {
	ep.Title = r.names.Reserve(ep.Title)
	name := Dashify(ep.Title)

	inputSchema, err := ep.InputSchema()
	if err != nil {
		return "", fmt.Errorf("failed to render input schema for %s: %w", ep.Title, err)
	}
	description := ep.Description
	if description == "" {
		description = ep.Title
	}

	r.server.AddTool(mcp.NewToolWithRawSchema(name, description, inputSchema), r.handler(name, ep, env))
	return name, nil
}

// handler runs elicitation, validates the merged arguments and executes the call.
func (r *Registry) handler(name string, ep *Endpoint, env config.Environment) server.ToolHandlerFunc {
	input := ep.Input()
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		args, err := r.elicitation.Run(ctx, ep.Title, ep.Elicitation, args)
		if err != nil {
			outcome := metrics.OutcomeError
			if errors.Is(err, ErrElicitationCancelled) {
				outcome = metrics.OutcomeCancelled
			} else if errors.Is(err, ErrElicitationValidationFailed) {
				outcome = metrics.OutcomeInvalid
			}
			r.metrics.RecordToolCall(name, outcome, time.Since(start))
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		validated, err := input.Validate(args)
		if err != nil {
			r.metrics.RecordToolCall(name, metrics.OutcomeInvalid, time.Since(start))
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}
		callArgs, _ := validated.(map[string]any)

		result := r.proxy.Execute(ctx, ep, callArgs, env)

		outcome := metrics.OutcomeSuccess
		if result.IsError {
			outcome = metrics.OutcomeError
		}
		r.metrics.RecordToolCall(name, outcome, time.Since(start))
		return result, nil
	}
}

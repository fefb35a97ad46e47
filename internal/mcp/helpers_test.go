package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
)

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

func testRedactor(t *testing.T) *Redactor {
	t.Helper()
	r, err := NewRedactor(config.NewDefaultConfig().Redaction)
	if err != nil {
		t.Fatalf("NewRedactor: %v", err)
	}
	return r
}

func testProxy(t *testing.T) *Proxy {
	t.Helper()
	return NewProxy(config.HTTPConfig{TimeoutSeconds: 5}, testRedactor(t), testLogger())
}

func decodeSpec(t *testing.T, doc string) map[string]any {
	t.Helper()
	spec, err := openapi.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return spec
}

func compileOne(t *testing.T, doc string, env config.Environment) *Endpoint {
	t.Helper()
	res := Compile(decodeSpec(t, doc), "test", env, testLogger())
	if len(res.Endpoints) != 1 {
		t.Fatalf("expected 1 endpoint, got %d (failures %d)", len(res.Endpoints), res.Failures)
	}
	return res.Endpoints[0]
}

// sendMessage pushes one JSON-RPC message through the server.
func sendMessage(t *testing.T, srv *mcpserver.MCPServer, method string, params any) mcpgo.JSONRPCMessage {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		msg["params"] = params
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return srv.HandleMessage(context.Background(), raw)
}

func listTools(t *testing.T, srv *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()
	resp := sendMessage(t, srv, "tools/list", nil)
	rpc, ok := resp.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected response %T", resp)
	}
	result, ok := rpc.Result.(mcpgo.ListToolsResult)
	if !ok {
		t.Fatalf("unexpected result %T", rpc.Result)
	}
	return result.Tools
}

func callTool(t *testing.T, srv *mcpserver.MCPServer, name string, args map[string]any) *mcpgo.CallToolResult {
	t.Helper()
	resp := sendMessage(t, srv, "tools/call", map[string]any{"name": name, "arguments": args})
	rpc, ok := resp.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected response %T: %+v", resp, resp)
	}
	result, ok := rpc.Result.(mcpgo.CallToolResult)
	if !ok {
		t.Fatalf("unexpected result %T", rpc.Result)
	}
	return &result
}

func extractText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// stubElicitor answers every elicitation with a fixed result and records the request.
type stubElicitor struct {
	result   *mcpgo.ElicitationResult
	err      error
	requests []mcpgo.ElicitationRequest
}

func (s *stubElicitor) RequestElicitation(_ context.Context, req mcpgo.ElicitationRequest) (*mcpgo.ElicitationResult, error) {
	s.requests = append(s.requests, req)
	return s.result, s.err
}

func accept(content map[string]any) *mcpgo.ElicitationResult {
	return &mcpgo.ElicitationResult{ElicitationResponse: mcpgo.ElicitationResponse{
		Action:  mcpgo.ElicitationResponseActionAccept,
		Content: content,
	}}
}

func callRequest() mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{}
}

package handlers

import (
	"net/http"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// ToolCounter reports how many tools the MCP server exposes.
type ToolCounter interface {
	ToolCount() int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger *common.Logger
	tools  ToolCounter
}

// NewHealthHandler creates a new health handler. tools may be nil.
func NewHealthHandler(logger *common.Logger, tools ToolCounter) *HealthHandler {
	return &HealthHandler{logger: logger, tools: tools}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	count := 0
	if h.tools != nil {
		count = h.tools.ToolCount()
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tools":  count,
	})
}

package server

import (
	"net/http"

	"github.com/bobmcallan/openapi-mcp/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (streamable HTTP: POST messages, GET event stream, DELETE session)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)

	if s.app.Metrics != nil {
		path := s.app.Config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		metricsHandler := s.app.Metrics.Handler()
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			RouteByMethod(w, r, MethodRouter{
				http.MethodGet: metricsHandler.ServeHTTP,
			})
		})
	}

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)
	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "no route for "+r.URL.Path)
}

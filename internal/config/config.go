// Package config loads openapi-mcp configuration from TOML files and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig         `toml:"server"`
	MCP          MCPConfig            `toml:"mcp"`
	HTTP         HTTPConfig           `toml:"http"`
	Redaction    RedactionConfig      `toml:"redaction"`
	Metrics      MetricsConfig        `toml:"metrics"`
	Logging      common.LoggingConfig `toml:"logging"`
	Integrations []IntegrationConfig  `toml:"integrations"`
}

// ServerConfig contains MCP server identity and transport settings.
type ServerConfig struct {
	Name      string `toml:"name"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Transport string `toml:"transport"` // stdio, http
}

// MCPConfig controls which integrations are exposed and how calls behave.
type MCPConfig struct {
	Elicitation bool     `toml:"elicitation"`
	Tools       []string `toml:"tools"`       // enabled products
	Environment string   `toml:"environment"` // sandbox, production
}

// HTTPConfig contains outbound request settings.
type HTTPConfig struct {
	TimeoutSeconds   int   `toml:"timeout_seconds"`
	MaxResponseBytes int64 `toml:"max_response_bytes"`
}

// RedactionConfig lists what is masked in tool output.
type RedactionConfig struct {
	Fields  []string `toml:"fields"`  // regex patterns matched against whole JSON keys
	Headers []string `toml:"headers"` // header names masked in error echoes
	Marker  string   `toml:"marker"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// IntegrationConfig describes one OpenAPI document and the credentials used to call it.
type IntegrationConfig struct {
	Name            string            `toml:"name"`
	Product         string            `toml:"product"`
	Spec            string            `toml:"spec"`
	BaseURL         string            `toml:"base_url"`
	SandboxURL      string            `toml:"sandbox_url"`
	ProductionURL   string            `toml:"production_url"`
	SignRequests    bool              `toml:"sign_requests"`
	SkipValidation  bool              `toml:"skip_validation"`
	ClientIDEnv     string            `toml:"client_id_env"`
	ClientSecretEnv string            `toml:"client_secret_env"`
	PublicKeyPath   string            `toml:"public_key_path"`
	PublicKeyEnv    string            `toml:"public_key_path_env"`
	Header          map[string]string `toml:"header"`
	Query           map[string]string `toml:"query"`
	Cookie          map[string]string `toml:"cookie"`
	Credentials     map[string]string `toml:"credentials"` // composite keys, e.g. header.Authorization.HTTP.bearer
}

// IsProduction reports whether production base URLs should be used.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.MCP.Environment, "production")
}

// ProductEnabled reports whether the given product is listed in mcp.tools.
func (c *Config) ProductEnabled(product string) bool {
	for _, t := range c.MCP.Tools {
		if strings.EqualFold(strings.TrimSpace(t), product) {
			return true
		}
	}
	return false
}

// EnabledIntegrations returns the integrations whose product is enabled, in configuration order.
func (c *Config) EnabledIntegrations() []IntegrationConfig {
	var out []IntegrationConfig
	for _, ic := range c.Integrations {
		if c.ProductEnabled(ic.Product) {
			out = append(out, ic)
		}
	}
	return out
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
// When no file declares integrations the built-in integrations are used.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if len(config.Integrations) == 0 {
		config.Integrations = DefaultIntegrations()
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies OPENAPI_MCP_* environment variable overrides to config.
// TOOLS and ENV are honoured for compatibility with existing deployments.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("OPENAPI_MCP_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("OPENAPI_MCP_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if transport := os.Getenv("OPENAPI_MCP_TRANSPORT"); transport != "" {
		config.Server.Transport = transport
	}
	if level := os.Getenv("OPENAPI_MCP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if v := os.Getenv("OPENAPI_MCP_ELICITATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.MCP.Elicitation = b
		}
	}
	if v := os.Getenv("OPENAPI_MCP_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.HTTP.TimeoutSeconds = n
		}
	}
	if tools := os.Getenv("TOOLS"); tools != "" {
		config.MCP.Tools = strings.Split(strings.ToLower(tools), ",")
	}
	if env := os.Getenv("ENV"); env != "" {
		config.MCP.Environment = env
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, transport string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if transport != "" {
		config.Server.Transport = transport
	}
}

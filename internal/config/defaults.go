package config

import "github.com/bobmcallan/openapi-mcp/internal/common"

const (
	sandboxHost    = "https://sandbox.cashfree.com"
	productionHost = "https://api.cashfree.com"
)

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "openapi-mcp",
			Host:      "localhost",
			Port:      4243,
			Transport: "stdio",
		},
		MCP: MCPConfig{
			Elicitation: true,
			Tools:       []string{},
			Environment: "sandbox",
		},
		HTTP: HTTPConfig{
			TimeoutSeconds:   300,
			MaxResponseBytes: 50 << 20,
		},
		Redaction: RedactionConfig{
			Fields:  []string{"beneficiary_instrument_details"},
			Headers: []string{"x-client-id", "x-client-secret", "Authorization"},
			Marker:  "[MASKED]",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}

// DefaultIntegrations returns the Payment Gateway, Payouts and Verification integrations.
func DefaultIntegrations() []IntegrationConfig {
	return []IntegrationConfig{
		{
			Name:            "payments",
			Product:         "pg",
			Spec:            "openapi/openapi-PG.json",
			SandboxURL:      sandboxHost + "/pg",
			ProductionURL:   productionHost + "/pg",
			ClientIDEnv:     "PAYMENTS_APP_ID",
			ClientSecretEnv: "PAYMENTS_APP_SECRET",
		},
		{
			Name:            "payouts",
			Product:         "payouts",
			Spec:            "openapi/openapi-PO.json",
			SandboxURL:      sandboxHost + "/payout",
			ProductionURL:   productionHost + "/payout",
			SignRequests:    true,
			ClientIDEnv:     "PAYOUTS_APP_ID",
			ClientSecretEnv: "PAYOUTS_APP_SECRET",
			PublicKeyEnv:    "TWO_FA_PUBLIC_KEY_PEM_PATH",
		},
		{
			Name:            "verification",
			Product:         "secureid",
			Spec:            "openapi/openapi-VRS.json",
			SandboxURL:      sandboxHost + "/verification",
			ProductionURL:   productionHost + "/verification",
			SignRequests:    true,
			ClientIDEnv:     "SECUREID_APP_ID",
			ClientSecretEnv: "SECUREID_APP_SECRET",
			PublicKeyEnv:    "TWO_FA_PUBLIC_KEY_PEM_PATH",
		},
	}
}

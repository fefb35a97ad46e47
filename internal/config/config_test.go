package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 4243 {
		t.Errorf("expected default port 4243, got %d", cfg.Server.Port)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("expected default transport stdio, got %s", cfg.Server.Transport)
	}
	if !cfg.MCP.Elicitation {
		t.Error("expected elicitation enabled by default")
	}
	if cfg.HTTP.TimeoutSeconds != 300 {
		t.Errorf("expected default timeout 300, got %d", cfg.HTTP.TimeoutSeconds)
	}
	if cfg.Redaction.Marker != "[MASKED]" {
		t.Errorf("expected marker [MASKED], got %s", cfg.Redaction.Marker)
	}
	if len(cfg.Integrations) != 0 {
		t.Errorf("expected no integrations before load, got %d", len(cfg.Integrations))
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if len(cfg.Integrations) != 3 {
		t.Fatalf("expected 3 default integrations, got %d", len(cfg.Integrations))
	}
	if cfg.Integrations[1].Product != "payouts" || !cfg.Integrations[1].SignRequests {
		t.Errorf("expected payouts integration with signing, got %+v", cfg.Integrations[1])
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "test.toml")

	content := `
[server]
port = 9090
host = "0.0.0.0"
transport = "http"

[mcp]
elicitation = false
tools = ["orders"]

[redaction]
fields = ["card_number", "account_.*"]

[logging]
level = "debug"

[[integrations]]
name = "orders"
product = "orders"
spec = "specs/orders.yaml"
base_url = "https://api.example.com/v1"

[integrations.header]
x-api-version = "2024-01-01"

[integrations.credentials]
"header.Authorization.HTTP.bearer" = "token-123"
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Transport != "http" {
		t.Errorf("expected transport http, got %s", cfg.Server.Transport)
	}
	if cfg.MCP.Elicitation {
		t.Error("expected elicitation disabled")
	}
	if len(cfg.Redaction.Fields) != 2 {
		t.Errorf("expected 2 redaction fields, got %v", cfg.Redaction.Fields)
	}
	if len(cfg.Integrations) != 1 {
		t.Fatalf("expected 1 integration, got %d", len(cfg.Integrations))
	}
	ic := cfg.Integrations[0]
	if ic.BaseURL != "https://api.example.com/v1" {
		t.Errorf("unexpected base url %s", ic.BaseURL)
	}
	if ic.Header["x-api-version"] != "2024-01-01" {
		t.Errorf("expected header table to load, got %v", ic.Header)
	}
	if ic.Credentials["header.Authorization.HTTP.bearer"] != "token-123" {
		t.Errorf("expected credentials table to load, got %v", ic.Credentials)
	}
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(tomlPath, []byte("[server\nport = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFiles(tomlPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected read error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAPI_MCP_SERVER_PORT", "7777")
	t.Setenv("OPENAPI_MCP_TRANSPORT", "http")
	t.Setenv("OPENAPI_MCP_ELICITATION", "false")
	t.Setenv("TOOLS", "PG,Payouts")
	t.Setenv("ENV", "production")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Server.Transport != "http" {
		t.Errorf("expected transport http, got %s", cfg.Server.Transport)
	}
	if cfg.MCP.Elicitation {
		t.Error("expected elicitation disabled by env")
	}
	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	enabled := cfg.EnabledIntegrations()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled integrations, got %d", len(enabled))
	}
	if enabled[0].Product != "pg" || enabled[1].Product != "payouts" {
		t.Errorf("unexpected enabled integrations %+v", enabled)
	}
}

func TestEnvOverrides_InvalidPortIgnored(t *testing.T) {
	t.Setenv("OPENAPI_MCP_SERVER_PORT", "not-a-number")
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 4243 {
		t.Errorf("expected default port to survive, got %d", cfg.Server.Port)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 8080, "", "http")
	if cfg.Server.Port != 8080 || cfg.Server.Host != "localhost" || cfg.Server.Transport != "http" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
}

func TestBuildEnvironment(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(keyPath, []byte("-----BEGIN PUBLIC KEY-----\nabc\n-----END PUBLIC KEY-----\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_APP_ID", "id-1")
	t.Setenv("TEST_APP_SECRET", "secret-1")
	t.Setenv("TEST_KEY_PATH", keyPath)

	ic := IntegrationConfig{
		Name:            "payouts",
		SandboxURL:      "https://sandbox.example.com/payout",
		ProductionURL:   "https://api.example.com/payout",
		SignRequests:    true,
		ClientIDEnv:     "TEST_APP_ID",
		ClientSecretEnv: "TEST_APP_SECRET",
		PublicKeyEnv:    "TEST_KEY_PATH",
		Credentials:     map[string]string{"header.api-key.API_KEY": "k"},
	}

	env := BuildEnvironment(ic, false, common.NewSilentLogger())
	if env.BaseURL != "https://sandbox.example.com/payout" {
		t.Errorf("expected sandbox url, got %s", env.BaseURL)
	}
	if env.ClientID() != "id-1" || env.Header["x-client-secret"] != "secret-1" {
		t.Errorf("expected client credentials, got %v", env.Header)
	}
	if !env.Supplies("header", "x-client-id") {
		t.Error("expected header x-client-id to be supplied")
	}
	if env.Supplies("query", "x-client-id") {
		t.Error("query location should not supply x-client-id")
	}
	if env.PublicKey == "" {
		t.Error("expected public key to be loaded")
	}
	if env.Values["header.api-key.API_KEY"] != "k" {
		t.Errorf("expected composite credential, got %v", env.Values)
	}

	prod := BuildEnvironment(ic, true, common.NewSilentLogger())
	if prod.BaseURL != "https://api.example.com/payout" {
		t.Errorf("expected production url, got %s", prod.BaseURL)
	}
}

func TestBuildEnvironment_PartialCredentials(t *testing.T) {
	t.Setenv("ONLY_ID", "id-1")
	ic := IntegrationConfig{ClientIDEnv: "ONLY_ID", ClientSecretEnv: "MISSING_SECRET", BaseURL: "http://x"}
	env := BuildEnvironment(ic, false, common.NewSilentLogger())
	if env.Supplies("header", "x-client-id") {
		t.Error("client id must not be set without a secret")
	}
	if env.BaseURL != "http://x" {
		t.Errorf("explicit base url should win, got %s", env.BaseURL)
	}
}

func TestBuildEnvironment_MissingKeyFile(t *testing.T) {
	ic := IntegrationConfig{PublicKeyPath: filepath.Join(t.TempDir(), "missing.pem")}
	env := BuildEnvironment(ic, false, common.NewSilentLogger())
	if env.PublicKey != "" {
		t.Error("expected empty public key when the file is missing")
	}
}

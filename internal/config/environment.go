package config

import (
	"os"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// Environment is the static record an integration contributes to every call:
// base URL, credential values by location, composite credential keys and the signing key.
// It is built once at startup and only read afterwards.
type Environment struct {
	BaseURL      string
	Header       map[string]string
	Query        map[string]string
	Cookie       map[string]string
	Values       map[string]string // header.<name>.API_KEY, header.<name>.HTTP.<scheme>
	PublicKey    string            // PEM
	SignRequests bool
}

// Location returns the credential map for "header", "query" or "cookie".
func (e Environment) Location(in string) map[string]string {
	switch in {
	case "header":
		return e.Header
	case "query":
		return e.Query
	case "cookie":
		return e.Cookie
	}
	return nil
}

// Supplies reports whether the environment already holds a value for a security parameter.
func (e Environment) Supplies(in, name string) bool {
	_, ok := e.Location(in)[name]
	return ok
}

// ClientID returns the configured x-client-id header value.
func (e Environment) ClientID() string {
	return e.Header["x-client-id"]
}

// BuildEnvironment resolves an integration's environment from config, process env vars and the key file.
// Client credentials are only set when both id and secret are present.
func BuildEnvironment(ic IntegrationConfig, production bool, logger *common.Logger) Environment {
	env := Environment{
		Header:       copyMap(ic.Header),
		Query:        copyMap(ic.Query),
		Cookie:       copyMap(ic.Cookie),
		Values:       copyMap(ic.Credentials),
		SignRequests: ic.SignRequests,
	}

	switch {
	case ic.BaseURL != "":
		env.BaseURL = ic.BaseURL
	case production:
		env.BaseURL = ic.ProductionURL
	default:
		env.BaseURL = ic.SandboxURL
	}

	if ic.ClientIDEnv != "" && ic.ClientSecretEnv != "" {
		id, secret := os.Getenv(ic.ClientIDEnv), os.Getenv(ic.ClientSecretEnv)
		if id != "" && secret != "" {
			env.Header["x-client-id"] = id
			env.Header["x-client-secret"] = secret
		}
	}

	keyPath := ic.PublicKeyPath
	if keyPath == "" && ic.PublicKeyEnv != "" {
		keyPath = os.Getenv(ic.PublicKeyEnv)
	}
	if keyPath != "" {
		data, err := os.ReadFile(keyPath)
		if err != nil {
			logger.Warn().Str("integration", ic.Name).Str("path", keyPath).Err(err).Msg("failed to read public key")
		} else {
			env.PublicKey = string(data)
		}
	}

	return env
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

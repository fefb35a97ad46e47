package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
	"github.com/bobmcallan/openapi-mcp/internal/schema"
)

// bodyKey is the tool argument that carries the JSON request body.
const bodyKey = "body"

// Endpoint is one compiled operation: everything needed to expose it as a
// tool and to turn a tool call into an HTTP request.
type Endpoint struct {
	Integration string
	Title       string
	Description string
	Method      string
	BaseURL     string
	Path        string

	Paths   map[string]*schema.Validator
	Queries map[string]*schema.Validator
	Headers map[string]*schema.Validator
	Cookies map[string]*schema.Validator
	Body    *schema.Validator

	Security    []openapi.SecurityParam
	Elicitation *openapi.ElicitationConfig
}

// URL joins the base URL and the path template.
func (e *Endpoint) URL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.Path
}

// Arguments merges every validator map into the tool's argument shape.
// Later locations win on name clashes: path, query, body, header, cookie.
func (e *Endpoint) Arguments() map[string]*schema.Validator {
	out := make(map[string]*schema.Validator)
	for k, v := range e.Paths {
		out[k] = v
	}
	for k, v := range e.Queries {
		out[k] = v
	}
	if e.Body != nil {
		out[bodyKey] = e.Body
	}
	for _, m := range []map[string]*schema.Validator{e.Headers, e.Cookies} {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Input returns the object validator applied to a call's arguments.
func (e *Endpoint) Input() *schema.Validator {
	return &schema.Validator{Kind: schema.KindObject, Fields: e.Arguments()}
}

// InputSchema renders the tool's JSON Schema.
func (e *Endpoint) InputSchema() (json.RawMessage, error) {
	props, required := schema.FieldsSchema(e.Arguments())
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return json.Marshal(doc)
}

// CompileResult lists the compiled endpoints and the operations that failed.
type CompileResult struct {
	Endpoints []*Endpoint
	Failures  int
}

// Compile turns every x-mcp enabled operation of spec into an Endpoint.
// A failing operation is logged and skipped; it never aborts the pass.
func Compile(spec map[string]any, integration string, env config.Environment, logger *common.Logger) CompileResult {
	var result CompileResult
	resolver := openapi.NewResolver(spec)

	for _, ref := range openapi.Operations(spec) {
		op, err := resolver.Operation(ref)
		if err != nil {
			result.Failures++
			logger.Warn().Str("integration", integration).Str("operation", ref.String()).Err(err).Msg("failed to resolve operation")
			continue
		}
		if !op.Extension.Enabled {
			continue
		}
		ep, err := compileOperation(op, integration, env)
		if err != nil {
			result.Failures++
			logger.Warn().Str("integration", integration).Str("operation", ref.String()).Err(err).Msg("failed to compile operation")
			continue
		}
		result.Endpoints = append(result.Endpoints, ep)
	}
	return result
}

func compileOperation(op *openapi.Operation, integration string, env config.Environment) (ep *Endpoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			ep, err = nil, fmt.Errorf("panic while converting schema: %v", r)
		}
	}()

	ep = &Endpoint{
		Integration: integration,
		Title:       op.Summary,
		Description: op.Description,
		Method:      strings.ToUpper(op.Method),
		Path:        op.Path,
		Paths:       map[string]*schema.Validator{},
		Queries:     map[string]*schema.Validator{},
		Headers:     map[string]*schema.Validator{},
		Cookies:     map[string]*schema.Validator{},
		Security:    op.Security,
		Elicitation: op.Extension.Elicitation,
	}
	if ep.Title == "" {
		ep.Title = ep.Method + " " + TitleCase(op.Path)
	}

	ep.BaseURL = env.BaseURL
	if ep.BaseURL == "" && len(op.Servers) > 0 {
		ep.BaseURL = op.Servers[0]
	}

	for _, p := range op.Parameters {
		section := ep.section(p.In)
		if section == nil {
			continue
		}
		v := schema.FromAlternatives(schema.Parse(p.Schema, p.Required))
		if p.Required {
			v = schema.Required(v)
		} else {
			v = schema.Optional(v)
		}
		section[p.Name] = v
	}

	for _, sp := range op.Security {
		if env.Supplies(sp.In, sp.Name) {
			continue
		}
		if _, ok := securityValue(env, sp); ok {
			continue
		}
		section := ep.section(sp.In)
		if section == nil {
			continue
		}
		if _, declared := section[sp.Name]; !declared {
			section[sp.Name] = &schema.Validator{Kind: schema.KindString, Description: "Credential for the " + sp.Type + " security scheme"}
		}
	}

	if op.Body != nil {
		alts := schema.Parse(op.Body, op.BodyRequired)
		body := schema.ToValidator(alts[0])
		if op.BodyRequired {
			body = schema.Required(body)
		} else {
			body = schema.Optional(body)
		}
		ep.Body = body
	}
	return ep, nil
}

func (e *Endpoint) section(in string) map[string]*schema.Validator {
	switch in {
	case "path":
		return e.Paths
	case "query":
		return e.Queries
	case "header":
		return e.Headers
	case "cookie":
		return e.Cookies
	}
	return nil
}

// securityValue looks up a credential by its composite environment key:
// <in>.<name>.API_KEY for API keys, <in>.<name>.HTTP.<scheme> for HTTP auth.
func securityValue(env config.Environment, sp openapi.SecurityParam) (string, bool) {
	key := compositeKey(sp)
	if key == "" {
		return "", false
	}
	v, ok := env.Values[key]
	return v, ok && v != ""
}

func compositeKey(sp openapi.SecurityParam) string {
	switch sp.Type {
	case "apiKey":
		return sp.In + "." + sp.Name + ".API_KEY"
	case "http":
		return sp.In + "." + sp.Name + ".HTTP." + sp.Scheme
	}
	return ""
}

package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Methods lists the operation keys compiled from a path item, in compile order.
// "parameters" and "trace" are never treated as operations.
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch"}

// OperationRef addresses one operation in a document.
type OperationRef struct {
	Path   string
	Method string
}

func (o OperationRef) String() string {
	return strings.ToUpper(o.Method) + " " + o.Path
}

// Parameter is a declared operation parameter.
type Parameter struct {
	Name        string
	In          string
	Description string
	Required    bool
	Schema      any
}

// SecurityParam is a credential the operation expects in a query, header or cookie.
type SecurityParam struct {
	Name   string
	In     string
	Type   string // apiKey or http
	Scheme string // http scheme, lower case
}

// FieldMapping places an elicited value into the call arguments.
type FieldMapping struct {
	Target    string `json:"target"`
	Transform string `json:"transform,omitempty"`
}

// ElicitationField describes one value that may be requested from the caller.
type ElicitationField struct {
	Required bool           `json:"required"`
	Message  string         `json:"message,omitempty"`
	Schema   map[string]any `json:"schema,omitempty"`
	Mapping  FieldMapping   `json:"mapping"`
}

// ElicitationConfig is the per-operation elicitation block.
type ElicitationConfig struct {
	Enabled bool                        `json:"enabled"`
	Fields  map[string]ElicitationField `json:"fields"`
}

// Extension is the decoded "x-mcp" block of an operation.
type Extension struct {
	Enabled     bool
	Elicitation *ElicitationConfig
}

// Operation is a fully resolved operation with everything the compiler needs.
type Operation struct {
	OperationRef
	Summary      string
	Description  string
	OperationID  string
	Parameters   []Parameter
	Body         any
	BodyRequired bool
	Servers      []string
	Security     []SecurityParam
	Extension    Extension
}

// Operations lists every operation of the document, paths sorted.
func Operations(spec map[string]any) []OperationRef {
	paths, _ := spec["paths"].(map[string]any)
	names := make([]string, 0, len(paths))
	for p := range paths {
		names = append(names, p)
	}
	sort.Strings(names)

	var out []OperationRef
	for _, p := range names {
		item, _ := paths[p].(map[string]any)
		for _, m := range Methods {
			if _, ok := item[m]; ok {
				out = append(out, OperationRef{Path: p, Method: m})
			}
		}
	}
	return out
}

// Operation resolves one operation and collects its parameters, JSON body,
// servers, security requirements and x-mcp extension.
func (r *Resolver) Operation(ref OperationRef) (*Operation, error) {
	paths, _ := r.doc["paths"].(map[string]any)
	rawItem, ok := paths[ref.Path]
	if !ok {
		return nil, fmt.Errorf("path %s not found", ref.Path)
	}
	item, _ := rawItem.(map[string]any)
	if pointer, ok := item["$ref"].(string); ok {
		target, err := r.Resolve(pointer)
		if err != nil {
			return nil, err
		}
		item, _ = target.(map[string]any)
	}
	resolvedOp, err := r.ResolveAll(item[ref.Method])
	if err != nil {
		return nil, err
	}
	op, ok := resolvedOp.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("operation %s is not an object", ref)
	}
	pathParams, err := r.ResolveAll(item["parameters"])
	if err != nil {
		return nil, err
	}

	out := &Operation{OperationRef: ref}
	out.Summary, _ = op["summary"].(string)
	out.Description, _ = op["description"].(string)
	out.OperationID, _ = op["operationId"].(string)
	out.Parameters = mergeParameters(pathParams, op["parameters"])
	out.Body, out.BodyRequired = jsonBody(op["requestBody"])
	out.Servers = firstServers(op["servers"], item["servers"], r.doc["servers"])

	security, err := r.security(op)
	if err != nil {
		return nil, err
	}
	out.Security = security

	ext, err := decodeExtension(op["x-mcp"])
	if err != nil {
		return nil, fmt.Errorf("invalid x-mcp block: %w", err)
	}
	out.Extension = ext
	return out, nil
}

// mergeParameters combines path-level and operation-level parameters.
// An operation parameter replaces a path-level one with the same name and location.
func mergeParameters(pathLevel, opLevel any) []Parameter {
	var out []Parameter
	index := map[string]int{}
	for _, list := range []any{pathLevel, opLevel} {
		items, _ := list.([]any)
		for _, raw := range items {
			p, ok := parseParameter(raw)
			if !ok {
				continue
			}
			key := p.In + ":" + p.Name
			if i, seen := index[key]; seen {
				out[i] = p
				continue
			}
			index[key] = len(out)
			out = append(out, p)
		}
	}
	return out
}

func parseParameter(raw any) (Parameter, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Parameter{}, false
	}
	p := Parameter{}
	p.Name, _ = m["name"].(string)
	p.In, _ = m["in"].(string)
	if p.Name == "" || p.In == "" {
		return Parameter{}, false
	}
	p.Description, _ = m["description"].(string)
	p.Required, _ = m["required"].(bool)
	if p.In == "path" {
		p.Required = true
	}
	p.Schema = m["schema"]
	if p.Schema == nil {
		if content, ok := m["content"].(map[string]any); ok {
			for _, media := range sortedKeys(content) {
				if mm, ok := content[media].(map[string]any); ok {
					p.Schema = mm["schema"]
					break
				}
			}
		}
	}
	if p.Description != "" {
		if sm, ok := p.Schema.(map[string]any); ok {
			if _, has := sm["description"]; !has {
				copied := make(map[string]any, len(sm)+1)
				for k, v := range sm {
					copied[k] = v
				}
				copied["description"] = p.Description
				p.Schema = copied
			}
		}
	}
	return p, true
}

// jsonBody returns the schema of the first JSON media type of a request body.
func jsonBody(raw any) (any, bool) {
	body, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	required, _ := body["required"].(bool)
	content, _ := body["content"].(map[string]any)
	if media, ok := content["application/json"].(map[string]any); ok {
		return media["schema"], required
	}
	for _, key := range sortedKeys(content) {
		if !strings.Contains(strings.ToLower(key), "json") {
			continue
		}
		if media, ok := content[key].(map[string]any); ok {
			return media["schema"], required
		}
	}
	return nil, false
}

// firstServers returns the URLs of the first non-empty servers list,
// with server variables replaced by their defaults.
func firstServers(lists ...any) []string {
	for _, list := range lists {
		items, _ := list.([]any)
		var out []string
		for _, raw := range items {
			s, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			u, _ := s["url"].(string)
			if u == "" {
				continue
			}
			vars, _ := s["variables"].(map[string]any)
			for name, v := range vars {
				vm, _ := v.(map[string]any)
				if def, ok := vm["default"].(string); ok {
					u = strings.ReplaceAll(u, "{"+name+"}", def)
				}
			}
			out = append(out, u)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// security reads the first security requirement of the operation, or of the
// document when the operation declares none, and resolves its schemes.
func (r *Resolver) security(op map[string]any) ([]SecurityParam, error) {
	list, ok := op["security"].([]any)
	if !ok {
		list, _ = r.doc["security"].([]any)
	}
	if len(list) == 0 {
		return nil, nil
	}
	requirement, _ := list[0].(map[string]any)

	components, _ := r.doc["components"].(map[string]any)
	schemes, _ := components["securitySchemes"].(map[string]any)

	var out []SecurityParam
	for _, name := range sortedKeys(requirement) {
		raw, ok := schemes[name]
		if !ok {
			continue
		}
		resolved, err := r.ResolveAll(raw)
		if err != nil {
			return nil, err
		}
		scheme, _ := resolved.(map[string]any)
		typ, _ := scheme["type"].(string)
		switch typ {
		case "apiKey":
			paramName, _ := scheme["name"].(string)
			in, _ := scheme["in"].(string)
			if paramName == "" || in == "" {
				continue
			}
			out = append(out, SecurityParam{Name: paramName, In: in, Type: typ})
		case "http":
			s, _ := scheme["scheme"].(string)
			out = append(out, SecurityParam{Name: "Authorization", In: "header", Type: typ, Scheme: strings.ToLower(s)})
		}
	}
	return out, nil
}

func decodeExtension(raw any) (Extension, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Extension{}, nil
	}
	ext := Extension{}
	ext.Enabled, _ = m["enabled"].(bool)

	cfg, _ := m["config"].(map[string]any)
	el, ok := cfg["elicitation"]
	if !ok || el == nil {
		return ext, nil
	}
	data, err := json.Marshal(el)
	if err != nil {
		return ext, err
	}
	var ec ElicitationConfig
	if err := json.Unmarshal(data, &ec); err != nil {
		return ext, err
	}
	ext.Elicitation = &ec
	return ext, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package openapi loads OpenAPI documents, resolves local references and
// extracts the operations that are exposed as tools.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Result is the outcome of Validate.
type Result struct {
	Valid         bool
	Errors        []string
	Specification map[string]any
}

// Validate checks data (JSON or YAML) against the OpenAPI 3 rules and
// returns the decoded document tree. External references are rejected.
func Validate(ctx context.Context, data []byte) Result {
	spec, err := Decode(data)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return Result{Errors: []string{err.Error()}, Specification: spec}
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return Result{Errors: flatten(err), Specification: spec}
	}
	return Result{Valid: true, Specification: spec}
}

// Decode parses a JSON or YAML document into a tree of map[string]any,
// []any and scalar values.
func Decode(data []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	spec, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, errors.New("document root is not an object")
	}
	return spec, nil
}

// ID returns "<title> - <version>" or, when either is missing, the index.
func ID(spec map[string]any, index int) string {
	info, _ := spec["info"].(map[string]any)
	title, _ := info["title"].(string)
	version := scalarString(info["version"])
	if title == "" || version == "" {
		return strconv.Itoa(index)
	}
	return title + " - " + version
}

// HasPaths reports whether the document declares any paths.
func HasPaths(spec map[string]any) bool {
	paths, ok := spec["paths"].(map[string]any)
	return ok && len(paths) > 0
}

// normalize converts yaml's map[any]any into map[string]any recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			x[k] = normalize(child)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	case []any:
		for i, child := range x {
			x[i] = normalize(child)
		}
		return x
	}
	return v
}

func flatten(err error) []string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		out := make([]string, 0, len(multi))
		for _, e := range multi {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/metrics"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
)

// Elicitor sends an elicitation request to the calling client and waits for the reply.
// *server.MCPServer satisfies it.
type Elicitor interface {
	RequestElicitation(ctx context.Context, request mcp.ElicitationRequest) (*mcp.ElicitationResult, error)
}

// Elicitation asks the caller for configured fields that are missing from a tool call.
// It keeps no state between calls.
type Elicitation struct {
	elicitor Elicitor
	enabled  bool
	logger   *common.Logger
	metrics  *metrics.Collector
}

// NewElicitation creates the engine. enabled is the global switch.
func NewElicitation(elicitor Elicitor, enabled bool, logger *common.Logger, m *metrics.Collector) *Elicitation {
	return &Elicitation{elicitor: elicitor, enabled: enabled, logger: logger, metrics: m}
}

// Run returns args augmented with elicited values. Arguments are returned
// unchanged when elicitation is off, unconfigured or nothing is missing.
// A declined or empty reply fails with ErrElicitationCancelled; a reply that
// breaks field constraints fails with *ElicitationValidationError.
func (e *Elicitation) Run(ctx context.Context, tool string, cfg *openapi.ElicitationConfig, args map[string]any) (map[string]any, error) {
	if !e.enabled || cfg == nil || !cfg.Enabled || len(cfg.Fields) == 0 {
		return args, nil
	}
	missing := MissingFields(cfg, args)
	if len(missing) == 0 {
		return args, nil
	}
	if e.elicitor == nil {
		e.metrics.RecordElicitation(metrics.OutcomeSkipped)
		return args, nil
	}

	e.logger.Info().Str("tool", tool).Strs("fields", missing).Msg("requesting missing fields from caller")
	res, err := e.elicitor.RequestElicitation(ctx, BuildElicitationRequest(tool, missing, cfg))
	if err != nil {
		if errors.Is(err, server.ErrElicitationNotSupported) || errors.Is(err, server.ErrNoActiveSession) {
			e.logger.Warn().Str("tool", tool).Err(err).Msg("client cannot elicit, continuing with supplied arguments")
			e.metrics.RecordElicitation(metrics.OutcomeSkipped)
			return args, nil
		}
		e.metrics.RecordElicitation(metrics.OutcomeError)
		return nil, fmt.Errorf("elicitation request failed: %w", err)
	}

	content, ok := res.Content.(map[string]any)
	if res.Action != mcp.ElicitationResponseActionAccept || !ok || content == nil {
		e.logger.Info().Str("tool", tool).Str("action", string(res.Action)).Msg("elicitation not accepted")
		e.metrics.RecordElicitation(metrics.OutcomeCancelled)
		return nil, fmt.Errorf("%w: caller responded with %q", ErrElicitationCancelled, res.Action)
	}

	if err := ValidateElicitationReply(cfg, content); err != nil {
		e.logger.Warn().Str("tool", tool).Err(err).Msg("elicitation reply rejected")
		e.metrics.RecordElicitation(metrics.OutcomeInvalid)
		return nil, err
	}

	e.metrics.RecordElicitation(metrics.OutcomeAccepted)
	return ApplyFieldMappings(cfg, content, args), nil
}

// MissingFields lists, in name order, the configured fields with no non-empty
// value at their mapping target or under their own name.
func MissingFields(cfg *openapi.ElicitationConfig, args map[string]any) []string {
	var missing []string
	for _, name := range fieldNames(cfg) {
		field := cfg.Fields[name]
		if field.Mapping.Target != "" && hasValueAt(args, field.Mapping.Target) {
			continue
		}
		if hasValueAt(args, name) || isPresent(args[name]) {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// BuildElicitationRequest describes the missing fields as a flat object schema.
func BuildElicitationRequest(tool string, missing []string, cfg *openapi.ElicitationConfig) mcp.ElicitationRequest {
	properties := map[string]any{}
	var required []string
	for _, name := range missing {
		field, ok := cfg.Fields[name]
		if !ok {
			continue
		}
		prop := map[string]any{}
		for k, v := range field.Schema {
			prop[k] = v
		}
		if _, has := prop["description"]; !has && field.Message != "" {
			prop["description"] = field.Message
		}
		properties[name] = prop
		if field.Required {
			required = append(required, name)
		}
	}

	requested := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		requested["required"] = required
	}

	return mcp.ElicitationRequest{
		Request: mcp.Request{Method: string(mcp.MethodElicitationCreate)},
		Params: mcp.ElicitationParams{
			Message:         fmt.Sprintf("Please provide the required parameters for %s:", tool),
			RequestedSchema: requested,
		},
	}
}

// ValidateElicitationReply checks each replied value against its field's
// primitive constraints: pattern, length and enum for strings, bounds for numbers.
// Every violation is reported.
func ValidateElicitationReply(cfg *openapi.ElicitationConfig, reply map[string]any) error {
	properties := map[string]any{}
	for name := range reply {
		field, ok := cfg.Fields[name]
		if !ok || field.Schema == nil {
			continue
		}
		if c := constraintSchema(field.Schema); len(c) > 0 {
			properties[name] = c
		}
	}
	if len(properties) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(map[string]any{"type": "object", "properties": properties}),
		gojsonschema.NewGoLoader(reply),
	)
	if err != nil {
		return &ElicitationValidationError{Violations: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, fmt.Sprintf("Field %s: %s", re.Field(), re.Description()))
	}
	sort.Strings(violations)
	return &ElicitationValidationError{Violations: violations}
}

// constraintSchema keeps only the keywords enforced on elicited values. No
// "type" is kept, so string rules only apply to strings and bounds to numbers.
func constraintSchema(s map[string]any) map[string]any {
	var keys []string
	switch s["type"] {
	case "string":
		keys = []string{"pattern", "minLength", "maxLength", "enum"}
	case "number", "integer":
		keys = []string{"minimum", "maximum"}
	default:
		return nil
	}
	out := map[string]any{}
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	return out
}

// ApplyFieldMappings writes each replied value into a copy of args at its
// field's dotted target, applying the field's transform. Unknown reply keys
// match a field by name or by the last segment of a dotted field name, and
// otherwise land as flat keys.
func ApplyFieldMappings(cfg *openapi.ElicitationConfig, reply map[string]any, args map[string]any) map[string]any {
	out, _ := deepCopy(args).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	names := make([]string, 0, len(reply))
	for name := range reply {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := reply[name]
		field, ok := cfg.Fields[name]
		if !ok {
			field, ok = matchField(cfg, name)
		}
		if !ok {
			out[name] = value
			continue
		}
		target := field.Mapping.Target
		if target == "" {
			target = name
		}
		setValueAt(out, target, transform(value, field.Mapping.Transform))
	}
	return out
}

func matchField(cfg *openapi.ElicitationConfig, name string) (openapi.ElicitationField, bool) {
	for _, configured := range fieldNames(cfg) {
		parts := strings.Split(configured, ".")
		if configured == name || parts[len(parts)-1] == name {
			return cfg.Fields[configured], true
		}
	}
	return openapi.ElicitationField{}, false
}

func fieldNames(cfg *openapi.ElicitationConfig) []string {
	names := make([]string, 0, len(cfg.Fields))
	for name := range cfg.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func hasValueAt(args map[string]any, path string) bool {
	var current any = args
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		if current, ok = m[part]; !ok {
			return false
		}
	}
	return isPresent(current)
}

func isPresent(v any) bool {
	if v == nil {
		return false
	}
	s, isString := v.(string)
	return !isString || s != ""
}

func setValueAt(args map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := args
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func transform(value any, kind string) any {
	switch kind {
	case "number":
		switch v := value.(type) {
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				return float64(0)
			}
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return f
			}
		case bool:
			if v {
				return float64(1)
			}
			return float64(0)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		}
		return value
	case "boolean":
		switch v := value.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
			return v != ""
		case float64:
			return v != 0
		case nil:
			return false
		}
		return true
	case "string":
		switch v := value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			return "null"
		case map[string]any, []any:
			data, _ := json.Marshal(v)
			return string(data)
		}
		return fmt.Sprint(value)
	case "array":
		if arr, ok := value.([]any); ok {
			return arr
		}
		return []any{value}
	}
	return value
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			out[i] = deepCopy(child)
		}
		return out
	}
	return v
}

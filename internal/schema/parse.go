package schema

import (
	"encoding/json"
	"math"
)

// Parse converts a resolved OpenAPI schema object into alternatives.
// oneOf/anyOf produce one alternative per branch, allOf is merged, and
// nullable or a "null" entry in a type array adds a null alternative.
// Anything unrecognised becomes an untyped node that accepts any value.
// A boolean "required" on the schema itself marks the node required.
func Parse(raw any, required bool) Alternatives {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return Alternatives{{Required: required}}
	}
	if flag, ok := m["required"].(bool); ok && flag {
		required = true
	}

	if all, ok := m["allOf"].([]any); ok && len(all) > 0 {
		merged := without(m, "allOf")
		for _, part := range all {
			if pm, ok := part.(map[string]any); ok {
				merged = merge(merged, pm)
			}
		}
		m = merged
	}

	for _, key := range []string{"oneOf", "anyOf"} {
		branches, ok := m[key].([]any)
		if !ok || len(branches) == 0 {
			continue
		}
		base := without(m, key)
		var out Alternatives
		for _, b := range branches {
			bm, ok := b.(map[string]any)
			if !ok {
				out = append(out, &Node{Required: required})
				continue
			}
			out = append(out, Parse(merge(base, bm), required)...)
		}
		return out
	}

	types := typeList(m)
	if len(types) == 0 {
		return Alternatives{parseTyped(m, "", required)}
	}

	var out Alternatives
	hasNull := false
	for _, t := range types {
		if t == string(TypeNull) {
			hasNull = true
		}
		out = append(out, parseTyped(m, t, required))
	}
	if nullable, _ := m["nullable"].(bool); nullable && !hasNull {
		out = append(out, &Node{Type: TypeNull, Required: required})
	}
	return out
}

// typeList reads "type" as a string or a 3.1 type array, inferring it when absent.
func typeList(m map[string]any) []string {
	switch t := m["type"].(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if _, ok := m["properties"]; ok {
		return []string{string(TypeObject)}
	}
	if _, ok := m["items"]; ok {
		return []string{string(TypeArray)}
	}
	if enum, ok := m["enum"].([]any); ok && len(enum) > 0 {
		if _, isNum := toFloat(enum[0]); isNum {
			return []string{string(TypeNumber)}
		}
		return []string{string(TypeString)}
	}
	return nil
}

func parseTyped(m map[string]any, t string, required bool) *Node {
	n := &Node{Required: required}
	n.Title, _ = m["title"].(string)
	n.Description, _ = m["description"].(string)
	if def, ok := m["default"]; ok {
		n.Default, n.HasDefault = def, true
	}
	enum, hasEnum := m["enum"].([]any)
	hasEnum = hasEnum && len(enum) > 0

	switch Type(t) {
	case TypeString:
		n.Type = TypeString
		n.MinLength = intPtr(m["minLength"])
		n.MaxLength = intPtr(m["maxLength"])
		n.Pattern, _ = m["pattern"].(string)
		n.Format, _ = m["format"].(string)
		if hasEnum {
			n.Type, n.Enum = TypeEnumString, enum
		}
	case TypeNumber, TypeInteger:
		n.Type = Type(t)
		parseBounds(n, m)
		if hasEnum {
			n.Enum = enum
			if n.Type == TypeInteger {
				n.Type = TypeEnumInteger
			} else {
				n.Type = TypeEnumNumber
			}
		}
	case TypeBoolean:
		n.Type = TypeBoolean
	case TypeNull:
		n.Type = TypeNull
	case TypeFile:
		n.Type = TypeFile
	case TypeArray:
		n.Type = TypeArray
		if items, ok := m["items"]; ok {
			n.Items = Parse(items, true)
		}
		n.MinItems = intPtr(m["minItems"])
		n.MaxItems = intPtr(m["maxItems"])
	case TypeObject:
		n.Type = TypeObject
		if req, ok := m["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					n.RequiredProperties = append(n.RequiredProperties, s)
				}
			}
		}
		if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
			n.Properties = make(map[string]Alternatives, len(props))
			for name, p := range props {
				n.Properties[name] = Parse(p, n.requiresProperty(name))
			}
		}
	case "":
		// untyped: accepts anything
	default:
		n.Type = TypeAny
	}
	return n
}

// parseBounds handles both the 3.0 boolean and the 3.1 numeric forms of exclusive bounds.
func parseBounds(n *Node, m map[string]any) {
	n.Minimum = floatPtr(m["minimum"])
	n.Maximum = floatPtr(m["maximum"])

	switch v := m["exclusiveMinimum"].(type) {
	case bool:
		if v && n.Minimum != nil {
			n.ExclusiveMinimum, n.Minimum = n.Minimum, nil
		}
	default:
		n.ExclusiveMinimum = floatPtr(v)
	}
	switch v := m["exclusiveMaximum"].(type) {
	case bool:
		if v && n.Maximum != nil {
			n.ExclusiveMaximum, n.Maximum = n.Maximum, nil
		}
	default:
		n.ExclusiveMaximum = floatPtr(v)
	}
}

// merge overlays b onto a. Properties are merged and required lists are unioned.
func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		switch k {
		case "properties":
			props := map[string]any{}
			if ap, ok := out["properties"].(map[string]any); ok {
				for pk, pv := range ap {
					props[pk] = pv
				}
			}
			if bp, ok := v.(map[string]any); ok {
				for pk, pv := range bp {
					props[pk] = pv
				}
			}
			out[k] = props
		case "required":
			seen := map[string]bool{}
			var req []any
			for _, list := range []any{out["required"], v} {
				items, _ := list.([]any)
				for _, r := range items {
					if s, ok := r.(string); ok && !seen[s] {
						seen[s] = true
						req = append(req, s)
					}
				}
			}
			out[k] = req
		default:
			out[k] = v
		}
	}
	return out
}

func without(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// toFloat accepts the numeric types produced by encoding/json and yaml.v3.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func floatPtr(v any) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func intPtr(v any) *int {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return nil
	}
	i := int(f)
	return &i
}

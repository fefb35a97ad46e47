package schema

import "strconv"

// JSONSchema renders v as a JSON Schema fragment for tool input descriptions.
func (v *Validator) JSONSchema() map[string]any {
	out := map[string]any{}
	if v.Description != "" {
		out["description"] = v.Description
	}
	if v.HasDefault {
		out["default"] = v.Default
	}

	switch v.Kind {
	case KindAny:
	case KindNull:
		out["type"] = "null"
	case KindBoolean:
		out["type"] = "boolean"
	case KindString:
		out["type"] = "string"
		if v.MinLength != nil {
			out["minLength"] = *v.MinLength
		}
		if v.MaxLength != nil {
			out["maxLength"] = *v.MaxLength
		}
		if v.Pattern != nil {
			out["pattern"] = v.Pattern.String()
		}
		if v.Format != FormatNone {
			out["format"] = string(v.Format)
		}
	case KindNumber:
		out["type"] = "number"
		if v.Integer {
			out["type"] = "integer"
		}
		setFloat(out, "minimum", v.Minimum)
		setFloat(out, "maximum", v.Maximum)
		setFloat(out, "exclusiveMinimum", v.ExclusiveMinimum)
		setFloat(out, "exclusiveMaximum", v.ExclusiveMaximum)
	case KindEnum:
		values := make([]any, 0, len(v.Values))
		for _, s := range v.Values {
			if v.Numeric {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					values = append(values, f)
					continue
				}
			}
			values = append(values, s)
		}
		out["type"] = "string"
		if v.Numeric {
			out["type"] = "number"
		}
		out["enum"] = values
	case KindDate:
		out["type"] = "string"
		out["format"] = "date-time"
	case KindFile:
		out["format"] = "binary"
	case KindArray:
		out["type"] = "array"
		if v.Elem != nil {
			out["items"] = v.Elem.JSONSchema()
		} else {
			out["items"] = map[string]any{}
		}
		if v.MinItems != nil {
			out["minItems"] = *v.MinItems
		}
		if v.MaxItems != nil {
			out["maxItems"] = *v.MaxItems
		}
	case KindObject:
		props, required := FieldsSchema(v.Fields)
		out["type"] = "object"
		out["properties"] = props
		if len(required) > 0 {
			out["required"] = required
		}
	case KindRecord:
		out["type"] = "object"
		out["additionalProperties"] = true
	case KindUnion:
		options := make([]any, 0, len(v.Options))
		for _, opt := range v.Options {
			options = append(options, opt.JSONSchema())
		}
		out["anyOf"] = options
	}
	return out
}

// FieldsSchema renders a field map as JSON Schema properties plus the sorted
// names of fields that reject absence.
func FieldsSchema(fields map[string]*Validator) (map[string]any, []string) {
	props := make(map[string]any, len(fields))
	required := []string{}
	holder := &Validator{Fields: fields}
	for _, name := range holder.FieldNames() {
		f := fields[name]
		props[name] = f.JSONSchema()
		if !f.Optional && !f.HasDefault {
			required = append(required, name)
		}
	}
	return props, required
}

func setFloat(m map[string]any, key string, f *float64) {
	if f != nil {
		m[key] = *f
	}
}

package schema

import (
	"regexp"
	"strconv"
)

// ToValidator maps one Node onto a Validator. A node with no type accepts
// anything. Every kind honours Required: an optional validator also accepts absence.
func ToValidator(n *Node) *Validator {
	if n == nil {
		return &Validator{Kind: KindAny, Optional: true}
	}
	v := &Validator{Optional: !n.Required, Description: n.Description}

	switch n.Type {
	case "", TypeAny:
		v.Kind = KindAny
	case TypeNull:
		v.Kind = KindNull
	case TypeBoolean:
		v.Kind = KindBoolean
		v.Default, v.HasDefault = n.Default, n.HasDefault
	case TypeFile:
		v.Kind = KindFile
	case TypeString:
		stringValidator(v, n)
	case TypeNumber, TypeInteger:
		v.Kind = KindNumber
		v.Integer = n.Type == TypeInteger
		v.Minimum, v.Maximum = n.Minimum, n.Maximum
		v.ExclusiveMinimum, v.ExclusiveMaximum = n.ExclusiveMinimum, n.ExclusiveMaximum
		v.Default, v.HasDefault = n.Default, n.HasDefault
	case TypeEnumString, TypeEnumNumber, TypeEnumInteger:
		v.Kind = KindEnum
		v.Numeric = n.Type != TypeEnumString
		v.Values = enumLiterals(n.Enum)
		v.Default, v.HasDefault = n.Default, n.HasDefault
	case TypeArray:
		v.Kind = KindArray
		v.Elem = &Validator{Kind: KindAny}
		if len(n.Items) > 0 {
			v.Elem = withPresence(FromAlternatives(n.Items), true)
		}
		v.MinItems, v.MaxItems = n.MinItems, n.MaxItems
	case TypeObject:
		if len(n.Properties) == 0 {
			v.Kind = KindRecord
			if !n.Required {
				v.Default, v.HasDefault = map[string]any{}, true
			}
			break
		}
		v.Kind = KindObject
		v.Fields = make(map[string]*Validator, len(n.Properties))
		for name, alts := range n.Properties {
			required := n.requiresProperty(name)
			for _, alt := range alts {
				required = required || (alt != nil && alt.Required)
			}
			v.Fields[name] = withPresence(FromAlternatives(alts), required)
		}
	default:
		v.Kind = KindAny
	}
	return v
}

// FromAlternatives collapses a single alternative to its own validator and
// combines several into a union accepting any one matching shape.
func FromAlternatives(alts Alternatives) *Validator {
	switch len(alts) {
	case 0:
		return &Validator{Kind: KindArray, Elem: &Validator{Kind: KindAny}}
	case 1:
		return ToValidator(alts[0])
	}
	u := &Validator{Kind: KindUnion}
	for _, alt := range alts {
		opt := ToValidator(alt)
		u.Optional = u.Optional || opt.Optional
		if u.Description == "" {
			u.Description = opt.Description
		}
		u.Options = append(u.Options, opt)
	}
	return u
}

func stringValidator(v *Validator, n *Node) {
	v.Default, v.HasDefault = n.Default, n.HasDefault
	switch n.Format {
	case "date-time":
		v.Kind = KindDate
		return
	case "binary":
		v.Kind = KindFile
		return
	}
	if len(n.Enum) > 0 {
		v.Kind = KindEnum
		v.Values = enumLiterals(n.Enum)
		return
	}
	v.Kind = KindString
	v.MinLength, v.MaxLength = n.MinLength, n.MaxLength
	if n.Pattern != "" {
		re, err := regexp.Compile(n.Pattern)
		if err != nil {
			// invalid pattern: accept anything
			v.Kind = KindAny
			return
		}
		v.Pattern = re
	}
	switch n.Format {
	case "email":
		v.Format = FormatEmail
	case "uri", "url":
		v.Format = FormatURI
	case "uuid":
		v.Format = FormatUUID
	}
}

// withPresence returns a copy of v whose absence handling follows required.
func withPresence(v *Validator, required bool) *Validator {
	out := *v
	out.Optional = !required
	if required && out.Kind == KindRecord {
		out.Default, out.HasDefault = nil, false
	}
	return &out
}

// Required returns a copy of v that rejects absence.
func Required(v *Validator) *Validator { return withPresence(v, true) }

// Optional returns a copy of v that accepts absence.
func Optional(v *Validator) *Validator { return withPresence(v, false) }

func enumLiterals(values []any) []string {
	out := make([]string, 0, len(values))
	for _, val := range values {
		switch x := val.(type) {
		case string:
			out = append(out, x)
		case bool:
			out = append(out, strconv.FormatBool(x))
		case nil:
			out = append(out, "null")
		default:
			if f, ok := toFloat(x); ok {
				out = append(out, formatNumber(f))
			}
		}
	}
	return out
}

package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

// Kind tags a Validator. The set is closed; every switch over Kind handles all of them.
type Kind int

const (
	KindAny Kind = iota
	KindNull
	KindBoolean
	KindString
	KindNumber
	KindEnum
	KindDate
	KindFile
	KindArray
	KindObject
	KindRecord
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindEnum:
		return "enum"
	case KindDate:
		return "date"
	case KindFile:
		return "file"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindRecord:
		return "record"
	case KindUnion:
		return "union"
	}
	return "unknown"
}

// Format is an additional string constraint.
type Format string

const (
	FormatNone  Format = ""
	FormatEmail Format = "email"
	FormatURI   Format = "uri"
	FormatUUID  Format = "uuid"
)

// Validator accepts or rejects a value and returns it normalised
// (defaults applied, numeric enums coerced, dates rendered as ISO-8601 UTC).
type Validator struct {
	Kind        Kind
	Optional    bool
	Default     any
	HasDefault  bool
	Description string

	MinLength *int
	MaxLength *int
	Pattern   *regexp.Regexp
	Format    Format

	Integer          bool
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64

	Values  []string // enum literals, numbers in canonical decimal form
	Numeric bool

	Elem     *Validator
	MinItems *int
	MaxItems *int

	Fields map[string]*Validator

	Options []*Validator
}

// Issue is one rejected constraint.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError lists every issue found in a value.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Validate checks a value that is present.
func (v *Validator) Validate(value any) (any, error) {
	out, _, err := v.Check(value, true)
	return out, err
}

// Check validates value; present=false means the value was omitted.
// The returned bool reports whether the output holds a value.
func (v *Validator) Check(value any, present bool) (any, bool, error) {
	out, ok, issues := v.check("", value, present)
	if len(issues) > 0 {
		return nil, false, &ValidationError{Issues: issues}
	}
	return out, ok, nil
}

// Accepts reports whether value passes.
func (v *Validator) Accepts(value any, present bool) bool {
	_, _, err := v.Check(value, present)
	return err == nil
}

func (v *Validator) check(path string, value any, present bool) (any, bool, []Issue) {
	if !present {
		if v.HasDefault {
			return v.Default, true, nil
		}
		if v.Optional {
			return nil, false, nil
		}
		return nil, false, []Issue{{path, "required"}}
	}

	switch v.Kind {
	case KindAny:
		return value, true, nil
	case KindNull:
		if value != nil {
			return nil, false, []Issue{{path, "expected null, received " + describe(value)}}
		}
		return nil, true, nil
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return nil, false, []Issue{{path, "expected boolean, received " + describe(value)}}
		}
		return value, true, nil
	case KindString:
		return v.checkString(path, value)
	case KindNumber:
		return v.checkNumber(path, value)
	case KindEnum:
		return v.checkEnum(path, value)
	case KindDate:
		return checkDate(path, value)
	case KindFile:
		switch value.(type) {
		case string, map[string]any:
			return value, true, nil
		}
		return nil, false, []Issue{{path, "expected file, received " + describe(value)}}
	case KindArray:
		return v.checkArray(path, value)
	case KindObject:
		return v.checkObject(path, value)
	case KindRecord:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, false, []Issue{{path, "expected object, received " + describe(value)}}
		}
		return m, true, nil
	case KindUnion:
		for _, opt := range v.Options {
			if out, ok, issues := opt.check(path, value, true); len(issues) == 0 {
				return out, ok, nil
			}
		}
		return nil, false, []Issue{{path, "value does not match any allowed shape"}}
	}
	return nil, false, []Issue{{path, "unsupported validator kind " + v.Kind.String()}}
}

func (v *Validator) checkString(path string, value any) (any, bool, []Issue) {
	s, ok := value.(string)
	if !ok {
		return nil, false, []Issue{{path, "expected string, received " + describe(value)}}
	}
	var issues []Issue
	n := utf8.RuneCountInString(s)
	if v.MinLength != nil && n < *v.MinLength {
		issues = append(issues, Issue{path, fmt.Sprintf("must contain at least %d character(s)", *v.MinLength)})
	}
	if v.MaxLength != nil && n > *v.MaxLength {
		issues = append(issues, Issue{path, fmt.Sprintf("must contain at most %d character(s)", *v.MaxLength)})
	}
	if v.Pattern != nil && !v.Pattern.MatchString(s) {
		issues = append(issues, Issue{path, "does not match pattern " + v.Pattern.String()})
	}
	if msg := checkFormat(v.Format, s); msg != "" {
		issues = append(issues, Issue{path, msg})
	}
	if len(issues) > 0 {
		return nil, false, issues
	}
	return s, true, nil
}

var formatMessages = map[Format]string{
	FormatEmail: "invalid email",
	FormatURI:   "invalid url",
	FormatUUID:  "invalid uuid",
}

// checkFormat uses the gojsonschema format checkers. An email must be a bare
// address, without a display name.
func checkFormat(f Format, s string) string {
	if f == FormatNone {
		return ""
	}
	ok := gojsonschema.FormatCheckers.IsFormat(string(f), s)
	if f == FormatEmail && strings.ContainsAny(s, "<> ") {
		ok = false
	}
	if !ok {
		return formatMessages[f]
	}
	return ""
}

func (v *Validator) checkNumber(path string, value any) (any, bool, []Issue) {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) {
		return nil, false, []Issue{{path, "expected number, received " + describe(value)}}
	}
	var issues []Issue
	if v.Integer && f != math.Trunc(f) {
		issues = append(issues, Issue{path, "expected integer, received float"})
	}
	if v.Minimum != nil && f < *v.Minimum {
		issues = append(issues, Issue{path, "must be greater than or equal to " + formatNumber(*v.Minimum)})
	}
	if v.Maximum != nil && f > *v.Maximum {
		issues = append(issues, Issue{path, "must be less than or equal to " + formatNumber(*v.Maximum)})
	}
	if v.ExclusiveMinimum != nil && f <= *v.ExclusiveMinimum {
		issues = append(issues, Issue{path, "must be greater than " + formatNumber(*v.ExclusiveMinimum)})
	}
	if v.ExclusiveMaximum != nil && f >= *v.ExclusiveMaximum {
		issues = append(issues, Issue{path, "must be less than " + formatNumber(*v.ExclusiveMaximum)})
	}
	if len(issues) > 0 {
		return nil, false, issues
	}
	return f, true, nil
}

func (v *Validator) checkEnum(path string, value any) (any, bool, []Issue) {
	var literal string
	switch x := value.(type) {
	case string:
		literal = x
	default:
		f, ok := toFloat(value)
		if !v.Numeric || !ok {
			return nil, false, []Issue{{path, "expected one of " + strings.Join(v.Values, ", ") + ", received " + describe(value)}}
		}
		literal = formatNumber(f)
	}
	for _, allowed := range v.Values {
		if allowed != literal {
			continue
		}
		if v.Numeric {
			f, err := strconv.ParseFloat(literal, 64)
			if err != nil {
				return nil, false, []Issue{{path, "enum value is not numeric"}}
			}
			return f, true, nil
		}
		return literal, true, nil
	}
	return nil, false, []Issue{{path, fmt.Sprintf("invalid enum value %q, expected one of %s", literal, strings.Join(v.Values, ", "))}}
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func checkDate(path string, value any) (any, bool, []Issue) {
	var t time.Time
	switch x := value.(type) {
	case string:
		parsed := false
		for _, layout := range dateLayouts {
			if p, err := time.Parse(layout, x); err == nil {
				t, parsed = p, true
				break
			}
		}
		if !parsed {
			return nil, false, []Issue{{path, "invalid date"}}
		}
	default:
		ms, ok := toFloat(value)
		if !ok {
			return nil, false, []Issue{{path, "expected date, received " + describe(value)}}
		}
		t = time.UnixMilli(int64(ms))
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00"), true, nil
}

func (v *Validator) checkArray(path string, value any) (any, bool, []Issue) {
	items, ok := value.([]any)
	if !ok {
		return nil, false, []Issue{{path, "expected array, received " + describe(value)}}
	}
	var issues []Issue
	if v.MinItems != nil && len(items) < *v.MinItems {
		issues = append(issues, Issue{path, fmt.Sprintf("must contain at least %d element(s)", *v.MinItems)})
	}
	if v.MaxItems != nil && len(items) > *v.MaxItems {
		issues = append(issues, Issue{path, fmt.Sprintf("must contain at most %d element(s)", *v.MaxItems)})
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		elem := v.Elem
		if elem == nil {
			out = append(out, item)
			continue
		}
		parsed, _, itemIssues := elem.check(fmt.Sprintf("%s[%d]", path, i), item, true)
		issues = append(issues, itemIssues...)
		out = append(out, parsed)
	}
	if len(issues) > 0 {
		return nil, false, issues
	}
	return out, true, nil
}

// checkObject validates declared fields and drops undeclared keys.
func (v *Validator) checkObject(path string, value any) (any, bool, []Issue) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, false, []Issue{{path, "expected object, received " + describe(value)}}
	}
	var issues []Issue
	out := make(map[string]any, len(v.Fields))
	for _, name := range v.FieldNames() {
		raw, present := m[name]
		parsed, ok, fieldIssues := v.Fields[name].check(joinPath(path, name), raw, present)
		issues = append(issues, fieldIssues...)
		if ok {
			out[name] = parsed
		}
	}
	if len(issues) > 0 {
		return nil, false, issues
	}
	return out, true, nil
}

// FieldNames returns object field names in sorted order.
func (v *Validator) FieldNames() []string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(value); ok {
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

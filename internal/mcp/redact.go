package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/config"
)

// Redactor masks sensitive JSON fields and credential headers in tool output.
type Redactor struct {
	fields  []*regexp.Regexp
	headers []string
	marker  string
}

// NewRedactor compiles the field patterns; each must match a whole key.
func NewRedactor(cfg config.RedactionConfig) (*Redactor, error) {
	r := &Redactor{headers: cfg.Headers, marker: cfg.Marker}
	if r.marker == "" {
		r.marker = "[MASKED]"
	}
	for _, pattern := range cfg.Fields {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
		}
		r.fields = append(r.fields, re)
	}
	return r, nil
}

// Body renders a response body as text. JSON bodies are re-encoded with two-space
// indentation, keys in their original order and sensitive fields replaced by the
// marker; anything else is returned as-is.
func (r *Redactor) Body(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	v, err := decodeOrdered(dec)
	if err != nil || dec.More() {
		return string(data)
	}
	if _, err := dec.Token(); err != io.EOF {
		return string(data)
	}
	var buf bytes.Buffer
	r.writeOrdered(&buf, v, "")
	return buf.String()
}

// Value returns a copy of v with every matching field masked, at any depth.
func (r *Redactor) Value(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			if r.sensitive(k) {
				out[k] = r.marker
				continue
			}
			out[k] = r.Value(child)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			out[i] = r.Value(child)
		}
		return out
	}
	return v
}

// Headers returns a copy of h with credential headers masked.
func (r *Redactor) Headers(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
		for _, masked := range r.headers {
			if strings.EqualFold(k, masked) && v != "" {
				out[k] = r.marker
				break
			}
		}
	}
	return out
}

func (r *Redactor) sensitive(key string) bool {
	for _, re := range r.fields {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

func (r *Redactor) encode(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// member is one key of a decoded object; objects keep members in input order.
type member struct {
	key   string
	value any
}

func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := []member{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{key: key, value: value})
		}
		_, err = dec.Token()
		return obj, err
	case '[':
		arr := []any{}
		for dec.More() {
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		_, err = dec.Token()
		return arr, err
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

func (r *Redactor) writeOrdered(buf *bytes.Buffer, v any, indent string) {
	inner := indent + "  "
	switch x := v.(type) {
	case []member:
		if len(x) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteString("{\n")
		for i, m := range x {
			buf.WriteString(inner)
			writeScalar(buf, m.key)
			buf.WriteString(": ")
			if r.sensitive(m.key) {
				writeScalar(buf, r.marker)
			} else {
				r.writeOrdered(buf, m.value, inner)
			}
			if i < len(x)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "}")
	case []any:
		if len(x) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteString("[\n")
		for i, child := range x {
			buf.WriteString(inner)
			r.writeOrdered(buf, child, inner)
			if i < len(x)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "]")
	default:
		writeScalar(buf, x)
	}
}

// writeScalar encodes a string, json.Number, bool or nil without HTML escaping.
func writeScalar(buf *bytes.Buffer, v any) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.WriteString("null")
		return
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

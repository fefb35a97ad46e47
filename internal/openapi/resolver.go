package openapi

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedReference = errors.New("unsupported reference")
	ErrReferenceNotFound    = errors.New("reference not found")
	ErrReferenceCycle       = errors.New("reference cycle")
)

// ReferenceError reports which pointer failed to resolve.
type ReferenceError struct {
	Pointer string
	Err     error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Pointer)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

// Resolver inlines local "#/..." references against one document.
// Resolved targets are kept in an arena keyed by pointer, so each pointer is
// walked once per Resolver. A Resolver is not safe for concurrent use and
// must not be shared across documents.
type Resolver struct {
	doc    map[string]any
	arena  map[string]any
	active map[string]bool
}

// NewResolver creates a resolver with an empty cache for doc.
func NewResolver(doc map[string]any) *Resolver {
	return &Resolver{
		doc:    doc,
		arena:  make(map[string]any),
		active: make(map[string]bool),
	}
}

// Resolve returns the fully inlined node the pointer refers to.
func (r *Resolver) Resolve(pointer string) (any, error) {
	if v, ok := r.arena[pointer]; ok {
		return v, nil
	}
	if !strings.HasPrefix(pointer, "#/") {
		return nil, &ReferenceError{Pointer: pointer, Err: ErrUnsupportedReference}
	}
	if r.active[pointer] {
		return nil, &ReferenceError{Pointer: pointer, Err: ErrReferenceCycle}
	}

	node, err := r.lookup(pointer)
	if err != nil {
		return nil, err
	}

	r.active[pointer] = true
	resolved, err := r.ResolveAll(node)
	delete(r.active, pointer)
	if err != nil {
		return nil, err
	}
	r.arena[pointer] = resolved
	return resolved, nil
}

// ResolveAll returns a copy of v with every {"$ref": ...} object replaced by
// its resolved target. Non-container values pass through unchanged.
func (r *Resolver) ResolveAll(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if ref, ok := x["$ref"].(string); ok {
			return r.Resolve(ref)
		}
		out := make(map[string]any, len(x))
		for k, child := range x {
			resolved, err := r.ResolveAll(child)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			resolved, err := r.ResolveAll(child)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	}
	return v, nil
}

func (r *Resolver) lookup(pointer string) (any, error) {
	var current any = r.doc
	for _, raw := range strings.Split(strings.TrimPrefix(pointer, "#/"), "/") {
		segment := decodeSegment(raw)
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, &ReferenceError{Pointer: pointer, Err: ErrReferenceNotFound}
			}
			current = next
		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, &ReferenceError{Pointer: pointer, Err: ErrReferenceNotFound}
			}
			current = node[i]
		default:
			return nil, &ReferenceError{Pointer: pointer, Err: ErrReferenceNotFound}
		}
	}
	return current, nil
}

// decodeSegment undoes URI percent-encoding and JSON pointer escaping.
func decodeSegment(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

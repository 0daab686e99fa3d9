// Package engine implements the valuation core: condition matching, pricing
// actions with their multiplier cascade, formula evaluation, and the
// orchestrator that turns a rule catalog plus an item context into an
// adjusted price. The engine is pure: it never touches storage and never
// mutates its inputs, so a single instance is safe for concurrent callers.
package engine

import (
	"strings"
)

// Context is the read-only evaluation input: a nested associative document
// addressable by dotted paths ("item.condition", "specs.memory.size_gb").
// It is assembled by the caller from the item record and discarded after the
// evaluation. Conventional top-level namespaces are "item", "specs",
// "benchmarks" and "condition"; the engine adds "pricing" for formulas.
type Context map[string]any

// unresolved is the sentinel for a path that does not exist in the context.
// It is distinct from a stored nil, which is a legitimate explicit value.
type unresolved struct{}

func (unresolved) String() string { return "<unresolved>" }

// Unresolved is the value Resolve returns for missing paths.
var Unresolved = unresolved{}

// IsUnresolved reports whether v is the missing-path sentinel
func IsUnresolved(v any) bool {
	_, ok := v.(unresolved)
	return ok
}

// Resolve walks the context along a dotted path. It returns Unresolved when
// any segment is missing or a non-terminal segment is not a nested document.
// A present key holding nil resolves to nil, not Unresolved.
func (c Context) Resolve(path string) any {
	if c == nil || path == "" {
		return Unresolved
	}

	var current any = map[string]any(c)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, exists := node[segment]
			if !exists {
				return Unresolved
			}
			current = value
		case Context:
			value, exists := node[segment]
			if !exists {
				return Unresolved
			}
			current = value
		default:
			return Unresolved
		}
	}
	return current
}

// ConditionGrade returns the item's condition grade, read from
// "item.condition" with a top-level "condition" fallback. Missing grades
// return the empty string.
func (c Context) ConditionGrade() string {
	if s, ok := resolveString(c, "item.condition"); ok {
		return s
	}
	if s, ok := resolveString(c, "condition"); ok {
		return s
	}
	return ""
}

// WithPricing returns a shallow copy of the context carrying the running
// pricing figures under the "pricing" namespace. The receiver is left
// untouched.
func (c Context) WithPricing(basePrice, runningPrice float64) Context {
	augmented := make(Context, len(c)+1)
	for k, v := range c {
		augmented[k] = v
	}
	augmented["pricing"] = map[string]any{
		"base_price":    basePrice,
		"running_price": runningPrice,
	}
	return augmented
}

// Namespace returns the named top-level sub-document, or an empty one when
// absent or of the wrong shape.
func (c Context) Namespace(name string) map[string]any {
	if m, ok := c[name].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func resolveString(c Context, path string) (string, bool) {
	v := c.Resolve(path)
	if IsUnresolved(v) || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

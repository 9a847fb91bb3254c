package engine

import (
	"reflect"

	"github.com/splitkit/splitkit/internal/store"
)

// Eligible reports whether a user context satisfies every targeting rule.
// Rules are ANDed. An empty rule list means everyone is eligible. A rule
// with an unknown operator, or an in/not_in rule whose value is not
// list-shaped, fails closed.
func Eligible(userCtx map[string]any, rules []store.TargetingRule) bool {
	for _, rule := range rules {
		if !matchRule(userCtx, rule) {
			return false
		}
	}
	return true
}

func matchRule(userCtx map[string]any, rule store.TargetingRule) bool {
	ctxValue := userCtx[rule.Type]

	switch rule.Operator {
	case store.OpEquals:
		return valuesEqual(ctxValue, rule.Value)
	case store.OpNotEquals:
		return !valuesEqual(ctxValue, rule.Value)
	case store.OpIn:
		list, ok := asList(rule.Value)
		if !ok {
			return false
		}
		return containsValue(list, ctxValue)
	case store.OpNotIn:
		list, ok := asList(rule.Value)
		if !ok {
			return false
		}
		return !containsValue(list, ctxValue)
	default:
		return false
	}
}

// valuesEqual compares exactly, except that numeric types are normalized
// first: rule values round-trip through JSON and come back as float64,
// while callers often build contexts with ints.
func valuesEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

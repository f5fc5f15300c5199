package store

import (
	"encoding/json"
	"strings"
)

// Matches reports whether metadata satisfies every predicate in where.
func (w Where) Matches(metadata map[string]any) bool {
	for _, cond := range w {
		value, ok := metadata[cond.Field]
		if !ok {
			return false
		}
		if !cond.matches(value) {
			return false
		}
	}
	return true
}

func (c Cond) matches(value any) bool {
	switch c.Op {
	case OpEq:
		return equalValues(value, c.Value)
	case OpGte:
		a, aok := toFloat(value)
		b, bok := toFloat(c.Value)
		if aok && bok {
			return a >= b
		}
		as, asok := value.(string)
		bs, bsok := c.Value.(string)
		return asok && bsok && as >= bs
	case OpLte:
		a, aok := toFloat(value)
		b, bok := toFloat(c.Value)
		if aok && bok {
			return a <= b
		}
		as, asok := value.(string)
		bs, bsok := c.Value.(string)
		return asok && bsok && as <= bs
	}
	return false
}

// equalValues compares stored and queried values, coercing numerics so an
// int query value matches a float64 stored one.
func equalValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func toFloat(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// MatchesContent reports whether content passes the filter: every term must
// appear as a case-insensitive substring. A nil filter matches everything.
func (f *DocFilter) MatchesContent(content string) bool {
	if f == nil || len(f.Contains) == 0 {
		return true
	}
	lower := strings.ToLower(content)
	for _, term := range f.Contains {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Row is one normalised result line.
type Row struct {
	Name  string
	Value string
}

// Strategy extracts rows from one known response shape. It reports false when the
// shape does not match so the next strategy can be tried.
type Strategy func(any) ([]Row, bool)

// firstMatch runs strategies in order and returns the first match.
func firstMatch(v any, strategies ...Strategy) ([]Row, bool) {
	for _, s := range strategies {
		if rows, ok := s(v); ok {
			return rows, true
		}
	}
	return nil, false
}

// lookup walks v along path through objects and arrays (numeric segments index arrays).
func lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, p := range path {
		switch t := cur.(type) {
		case map[string]any:
			next, ok := t[p]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// findFirst returns the value of the first key present in m.
func findFirst(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// asString renders scalars as text. Objects and arrays yield "".
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// toFloat accepts numbers and numeric strings, with or without thousands separators.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(fromPersianDigits(t)), ",", "")
		if s == "" || s == "-" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// listRows builds rows from an array of objects found at path. Items without a
// name or a usable value are skipped.
func listRows(limit int, nameKeys []string, value func(map[string]any) (string, bool), path ...string) Strategy {
	return func(v any) ([]Row, bool) {
		node, ok := lookup(v, path...)
		if !ok {
			return nil, false
		}
		items, ok := asSlice(node)
		if !ok {
			return nil, false
		}
		rows := make([]Row, 0, min(len(items), limit))
		for _, it := range items {
			obj, ok := asObject(it)
			if !ok {
				continue
			}
			nameVal, ok := findFirst(obj, nameKeys...)
			if !ok {
				continue
			}
			name := asString(nameVal)
			val, ok := value(obj)
			if name == "" || !ok {
				continue
			}
			rows = append(rows, Row{Name: name, Value: val})
			if len(rows) == limit {
				break
			}
		}
		return rows, true
	}
}

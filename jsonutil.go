package unillm

import (
	"fmt"
	"strings"
)

// asMap narrows a decoded JSON value to an object, the shape every provider
// body/chunk is expected to take at the top level.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func getMap(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	return asMap(m[key])
}

func getSlice(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	s, ok := m[key].([]any)
	return s, ok
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func getStringPtr(m map[string]any, key string) *string {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func getBoolPtr(m map[string]any, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// getInt reads a JSON number (decoded as float64 by encoding/json, but
// accepted as int/int64 too for callers that built the value by hand, e.g.
// in tests) as an int, defaulting to 0.
func getInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	return anyToInt(m[key])
}

func anyToInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// hasKey reports whether m has key present at all (even if its value is
// null), distinguishing "absent" from "explicitly null" for callers like
// error-document detection.
func hasKey(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	_, ok := m[key]
	return ok
}

// containsAnyFold reports whether s contains any of substrs, case-folded.
func containsAnyFold(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// headerLookup does a case-insensitive lookup in a headers map, since HTTP
// header casing is not meaningful and callers may hand us either form.
func headerLookup(headers map[string]string, name string) (string, bool) {
	if headers == nil {
		return "", false
	}
	if v, ok := headers[name]; ok {
		return v, true
	}
	lname := strings.ToLower(name)
	for k, v := range headers {
		if strings.ToLower(k) == lname {
			return v, true
		}
	}
	return "", false
}

func headerHasPrefix(headers map[string]string, name, prefix string) bool {
	v, ok := headerLookup(headers, name)
	return ok && strings.HasPrefix(v, prefix)
}

// reconcileTotalTokens trusts the wire total when present and >=
// input+output; otherwise it recomputes the sum, warning only when an
// actual wire value was smaller (an absent count recomputes silently).
func reconcileTotalTokens(wireTotal, input, output int) (int, []string) {
	sum := input + output
	if wireTotal >= sum {
		return wireTotal, nil
	}
	if wireTotal == 0 {
		return sum, nil
	}
	return sum, []string{fmt.Sprintf("total_tokens %d is less than input+output %d; recomputed", wireTotal, sum)}
}

// extraFields collects top-level body keys a parser doesn't otherwise
// interpret, so they survive into UnifiedResponse.Metadata["extra"] instead
// of being silently dropped.
func extraFields(m map[string]any, known ...string) map[string]any {
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	extra := map[string]any{}
	for k, v := range m {
		if !skip[k] {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

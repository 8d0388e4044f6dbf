// Package jsonpath resolves dotted paths against arbitrary decoded JSON.
package jsonpath

import (
	"strconv"
	"strings"
)

// Lookup walks a decoded JSON value by a dotted key path. Map segments are
// matched by key, slice segments by numeric index. The boolean result is
// false whenever any segment is missing; a missing field never panics or
// errors so callers can degrade gracefully.
//
// An empty path returns the value itself, mirroring a data root of "".
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return data, data != nil
	}

	current := data
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// LookupString resolves a path and renders the result as a string. Numbers
// decoded as float64 are formatted without a spurious fraction so provider
// ids like 12345 survive the JSON round trip intact.
func LookupString(data any, path string) (string, bool) {
	value, ok := Lookup(data, path)
	if !ok {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

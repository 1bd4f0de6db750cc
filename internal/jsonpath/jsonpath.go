// Package jsonpath pulls a scalar out of a JSON document using a dotted path
// with optional array indexes, e.g. "segments[0].text".
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type step struct {
	key   string
	index int
	isIdx bool
}

// Lookup decodes body and returns the scalar found at path as a string.
func Lookup(body []byte, path string) (string, bool) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return "", false
	}
	return Find(root, path)
}

// Find walks an already-decoded JSON value.
func Find(root any, path string) (string, bool) {
	steps, err := parse(path)
	if err != nil || len(steps) == 0 {
		return "", false
	}
	cur := root
	for _, s := range steps {
		if s.isIdx {
			arr, ok := cur.([]any)
			if !ok || s.index < 0 || s.index >= len(arr) {
				return "", false
			}
			cur = arr[s.index]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = obj[s.key]; !ok {
			return "", false
		}
	}
	return scalar(cur)
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// parse splits a path into key and index steps.
func parse(path string) ([]step, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	var steps []step
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("empty segment in %q", path)
		}
		name, rest, _ := strings.Cut(part, "[")
		if name != "" {
			steps = append(steps, step{key: name})
		}
		if rest == "" && !strings.Contains(part, "[") {
			continue
		}
		rest = "[" + rest
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if !strings.HasPrefix(rest, "[") || end < 0 {
				return nil, fmt.Errorf("malformed index in %q", part)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil {
				return nil, fmt.Errorf("invalid index %q in %q", rest[1:end], part)
			}
			steps = append(steps, step{index: n, isIdx: true})
			rest = rest[end+1:]
		}
	}
	return steps, nil
}

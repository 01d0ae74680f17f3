package transform

import (
	"encoding/json"
	"strings"
)

// decodeObject parses a JSON object out of raw model output. Models routinely
// wrap JSON in markdown fences or lead with prose, so the decoder takes the
// span from the first '{' to the last '}'.
func decodeObject(task Task, raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, invalid(task, "no JSON object in model output")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, invalid(task, "malformed JSON: %v", err)
	}
	return obj, nil
}

// stringField checks that key holds a non-empty string.
func stringField(task Task, obj map[string]any, key string) error {
	v, ok := obj[key]
	if !ok {
		return invalid(task, "missing %q key", key)
	}
	s, ok := v.(string)
	if !ok {
		return invalid(task, "%q must be a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return invalid(task, "%q must not be empty", key)
	}
	return nil
}

// listField checks that key holds a list and returns it.
func listField(task Task, obj map[string]any, key string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, invalid(task, "missing %q key", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalid(task, "%q must be a list", key)
	}
	return list, nil
}

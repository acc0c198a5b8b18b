package config

import "encoding/json"

// parseOverrideValue decodes raw as JSON when possible (so "3", "true",
// "[1,2]", and "{\"a\":1}" all come through as their native Go types),
// falling back to the raw string otherwise.
func parseOverrideValue(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	return decoded
}

// setDotted walks doc along path, creating intermediate map[string]any
// nodes as needed, and sets the final segment to value.
func setDotted(doc map[string]any, path []string, value any) {
	cursor := doc
	for i, segment := range path {
		if i == len(path)-1 {
			cursor[segment] = value
			return
		}
		next, ok := cursor[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			cursor[segment] = next
		}
		cursor = next
	}
}

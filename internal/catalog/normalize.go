package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listKeys are the wrapper keys a list response may use, checked in order.
var listKeys = []string{"data", "categories", "users", "items"}

// objectKeys are the wrapper keys a single-object response may use.
var objectKeys = []string{"data", "category"}

// DecodeList normalizes a list response into a category slice. The backend
// is not consistent about shapes: it may answer with a bare array or with the
// array wrapped in an object under one of listKeys, possibly nested (for
// example {"success": true, "data": {"categories": [...]}}).
func DecodeList(body []byte) ([]Category, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Category{}, nil
	}

	switch trimmed[0] {
	case '[':
		var categories []Category
		if err := json.Unmarshal(trimmed, &categories); err != nil {
			return nil, fmt.Errorf("failed to decode category list: %w", err)
		}
		return categories, nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to decode category list wrapper: %w", err)
		}
		for _, key := range listKeys {
			if inner, ok := wrapper[key]; ok {
				return DecodeList(inner)
			}
		}
		return nil, fmt.Errorf("unrecognized list response shape: no %v key", listKeys)
	default:
		return nil, fmt.Errorf("unrecognized list response shape")
	}
}

// DecodeOne normalizes a single-category response, which may be the bare
// object or the object wrapped under one of objectKeys.
func DecodeOne(body []byte) (Category, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Category{}, fmt.Errorf("unrecognized category response shape")
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return Category{}, fmt.Errorf("failed to decode category: %w", err)
	}
	if _, ok := wrapper["id"]; !ok {
		for _, key := range objectKeys {
			if inner, ok := wrapper[key]; ok {
				return DecodeOne(inner)
			}
		}
	}

	var category Category
	if err := json.Unmarshal(trimmed, &category); err != nil {
		return Category{}, fmt.Errorf("failed to decode category: %w", err)
	}
	return category, nil
}

package params

import (
	"fmt"
	"strings"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// ParseKeyValuePairs converts "key=value" strings into a map.
// Keys are trimmed; values are kept as given. A later pair overrides an earlier one.
//
// Example:
//
//	params, err := ParseKeyValuePairs([]string{"columns=name,city", "hash_column=hash"})
//	// map[string]string{"columns": "name,city", "hash_column": "hash"}
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not in key=value format (example: --param key_columns=id,date): %w", pair, pgload.ErrInvalidConfig)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("parameter has empty key: %q: %w", pair, pgload.ErrInvalidConfig)
		}
		result[key] = value
	}

	return result, nil
}

// Merge returns a new map holding base overridden by each override in order.
func Merge(base map[string]string, overrides ...map[string]string) map[string]string {
	result := make(map[string]string, len(base))
	for k, v := range base {
		result[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			result[k] = v
		}
	}
	return result
}

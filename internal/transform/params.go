package transform

import (
	"fmt"
	"strings"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// Params holds the parameters shared by every step of a pipeline.
type Params map[string]any

// FromStrings converts flag or .env parameters.
func FromStrings(m map[string]string) Params {
	p := make(Params, len(m))
	for k, v := range m {
		p[k] = v
	}
	return p
}

// Strings returns key as a list. It accepts []string, []any of strings, or a
// comma-separated string. Blank items are dropped.
func (p Params) Strings(key string) ([]string, bool) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, false
	}

	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		items = make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
	case string:
		items = strings.Split(v, ",")
	default:
		items = []string{fmt.Sprint(v)}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, len(out) > 0
}

// String returns key as a string, or def when it is absent or blank.
func (p Params) String(key, def string) string {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(raw))
	if s == "" {
		return def
	}
	return s
}

// requireStrings returns a non-empty list or ErrMissingParameter naming op.
func (p Params) requireStrings(op, key string) ([]string, error) {
	values, ok := p.Strings(key)
	if !ok {
		return nil, fmt.Errorf("%s requires %q: %w", op, key, pgload.ErrMissingParameter)
	}
	return values, nil
}

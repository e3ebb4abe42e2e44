package loader

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// Qualify parses "table" or "schema.table" and returns the quoted form,
// e.g. `"sales"."orders"`. Embedded double quotes are doubled.
func Qualify(ref string) (string, error) {
	parts, err := splitReference(ref)
	if err != nil {
		return "", err
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// BaseName returns the quoted last segment of a table reference.
func BaseName(ref string) (string, error) {
	parts, err := splitReference(ref)
	if err != nil {
		return "", err
	}
	return pgx.Identifier{parts[len(parts)-1]}.Sanitize(), nil
}

// QuoteIdent quotes a single column name. Dots are kept as part of the name.
func QuoteIdent(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("blank column name: %w", pgload.ErrMalformedReference)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}

func quoteAll(names []string) ([]string, error) {
	quoted := make([]string, len(names))
	for i, n := range names {
		q, err := QuoteIdent(n)
		if err != nil {
			return nil, err
		}
		quoted[i] = q
	}
	return quoted, nil
}

func splitReference(ref string) ([]string, error) {
	parts := strings.Split(ref, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("table reference %q has more than one separator: %w", ref, pgload.ErrMalformedReference)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("table reference %q has an empty segment: %w", ref, pgload.ErrMalformedReference)
		}
		parts[i] = p
	}
	return parts, nil
}

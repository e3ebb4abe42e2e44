package params

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// ParseEnvFile parses .env formatted content with godotenv: comments, blank
// lines, quoting, "export" prefixes and ${VAR} expansion between entries.
func ParseEnvFile(content []byte) (map[string]string, error) {
	values, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("invalid parameters file: %v: %w", err, pgload.ErrInvalidConfig)
	}
	return values, nil
}

// LoadEnvFile reads and parses the parameters file at path.
func LoadEnvFile(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters file %s: %w", path, err)
	}
	values, err := ParseEnvFile(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConfigFileName is looked up in the working directory when --config is not given.
const ConfigFileName = "pgload.yaml"

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
	KeepAliveIdle  string `yaml:"keepalive_idle,omitempty"`
}

type LoaderConfig struct {
	InsertChunkSize int    `yaml:"insert_chunk_size"`
	UpsertChunkSize int    `yaml:"upsert_chunk_size"`
	PageSize        int    `yaml:"page_size"`
	Policy          string `yaml:"policy"`
}

type TrackingConfig struct {
	Enabled         bool     `yaml:"enabled"`
	User            string   `yaml:"user"`
	PersistLevels   []string `yaml:"persist_levels"`
	MaxMessageChars int      `yaml:"max_message_chars"`
}

type TransformsConfig struct {
	Steps  []string       `yaml:"steps"`
	Params map[string]any `yaml:"params"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ProjectConfig is the content of pgload.yaml. Every field is optional.
type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Loader     LoaderConfig     `yaml:"loader"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Transforms TransformsConfig `yaml:"transforms"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Timeout    string           `yaml:"timeout"`
}

// Load reads a project configuration. path may name the file itself or the
// directory holding pgload.yaml. Unknown keys are rejected.
func Load(path string) (*ProjectConfig, error) {
	if path == "" {
		path = "."
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %v: %w", path, err, pgload.ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOptional behaves like Load but returns an empty configuration when the file is missing.
func LoadOptional(path string) (*ProjectConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		return &ProjectConfig{}, nil
	}
	return cfg, err
}

// Validate checks values yaml cannot type-check on its own.
func (c *ProjectConfig) Validate() error {
	var errs []error

	if _, err := ParseDuration(c.Timeout, 0); err != nil {
		errs = append(errs, fmt.Errorf("timeout: %w", err))
	}
	if _, err := ParseDuration(c.Connection.ConnectTimeout, 0); err != nil {
		errs = append(errs, fmt.Errorf("connection.connect_timeout: %w", err))
	}
	if _, err := ParseDuration(c.Connection.KeepAliveIdle, 0); err != nil {
		errs = append(errs, fmt.Errorf("connection.keepalive_idle: %w", err))
	}
	if _, err := pgload.ParseAuthMethod(c.Connection.AuthMethod); err != nil {
		errs = append(errs, fmt.Errorf("connection.auth_method: %w", err))
	}
	if _, err := pgload.ParseConflictPolicy(c.Loader.Policy); err != nil {
		errs = append(errs, fmt.Errorf("loader.policy: %w", err))
	}
	for name, v := range map[string]int{
		"loader.insert_chunk_size":   c.Loader.InsertChunkSize,
		"loader.upsert_chunk_size":   c.Loader.UpsertChunkSize,
		"loader.page_size":           c.Loader.PageSize,
		"tracking.max_message_chars": c.Tracking.MaxMessageChars,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative: %w", name, pgload.ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// TimeoutOr returns the configured run timeout, or def when unset.
func (c *ProjectConfig) TimeoutOr(def time.Duration) time.Duration {
	d, err := ParseDuration(c.Timeout, def)
	if err != nil {
		return def
	}
	return d
}

// ParseDuration accepts Go durations ("90s", "10m") or a bare number of
// seconds ("10"). An empty string yields def.
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("duration %q must not be negative: %w", s, pgload.ErrInvalidConfig)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, pgload.ErrInvalidConfig)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative: %w", s, pgload.ErrInvalidConfig)
	}
	return d, nil
}

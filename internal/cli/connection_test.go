package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/internal/config"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// clearConnectionEnv blanks every variable the resolver reads.
func clearConnectionEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PGLOAD_CONNECTION_STRING", "DATABASE_URL",
		"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE", "PGCONNECT_TIMEOUT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_CONNECT_TIMEOUT", "DB_KEEPALIVE_IDLE",
		"AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET", "AWS_REGION",
	} {
		t.Setenv(name, "")
	}
}

func TestResolveConnectionFromFlags_GranularOverProject(t *testing.T) {
	clearConnectionEnv(t)
	t.Setenv("DB_HOST", "legacy-host")
	t.Setenv("DB_PASSWORD", "secret")

	project := &config.ProjectConfig{Connection: config.ConnectionConfig{
		Host:     "yaml-host",
		Port:     6543,
		Database: "yaml_db",
		Username: "yaml_user",
	}}

	cfg, err := resolveConnectionFromFlags(connectionFlags{database: "warehouse"}, project)
	require.NoError(t, err)

	assert.Equal(t, "legacy-host", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "warehouse", cfg.Database)
	assert.Equal(t, "yaml_user", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, pgload.AuthMethodStandard, cfg.AuthMethod)
}

func TestResolveConnectionFromFlags_ConnectionString(t *testing.T) {
	clearConnectionEnv(t)

	cfg, err := resolveConnectionFromFlags(connectionFlags{
		connection: "postgresql://etl:pw@db.internal:5433/raw?sslmode=require",
		database:   "warehouse",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "warehouse", cfg.Database)
	assert.Equal(t, "require", cfg.SSLMode)
}

func TestResolveConnectionFromFlags_Conflicts(t *testing.T) {
	clearConnectionEnv(t)

	_, err := resolveConnectionFromFlags(connectionFlags{connection: "postgresql://localhost/db", host: "other"}, nil)
	if !errors.Is(err, pgload.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	_, err = resolveConnectionFromFlags(connectionFlags{authMethod: "kerberos"}, nil)
	if !errors.Is(err, pgload.ErrUnsupportedAuthMethod) && !errors.Is(err, pgload.ErrInvalidConfig) {
		t.Errorf("expected an auth method error, got %v", err)
	}
}

func TestResolveConnectionFromFlags_AWS(t *testing.T) {
	clearConnectionEnv(t)

	cfg, err := resolveConnectionFromFlags(connectionFlags{host: "x.rds.amazonaws.com", authMethod: "aws", awsRegion: "sa-east-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, pgload.AuthMethodAWSIAM, cfg.AuthMethod)
	assert.Equal(t, "sa-east-1", cfg.AWSRegion)
}

func TestLoadProjectConfig(t *testing.T) {
	orig := rootFlags.config
	defer func() { rootFlags.config = orig }()

	dir := t.TempDir()
	rootFlags.config = dir
	cfg, err := loadProjectConfig()
	require.NoError(t, err)
	assert.Equal(t, &config.ProjectConfig{}, cfg)

	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("timeout: 5m\nloader:\n  policy: nothing\n"), 0o644))
	cfg, err = loadProjectConfig()
	require.NoError(t, err)
	assert.Equal(t, "nothing", cfg.Loader.Policy)

	require.NoError(t, os.WriteFile(path, []byte("unknown_key: 1\n"), 0o644))
	_, err = loadProjectConfig()
	assert.ErrorIs(t, err, pgload.ErrInvalidConfig)
}

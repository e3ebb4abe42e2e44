//go:build conntest

package conntest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/internal/db"
)

func TestPrecedence_FlagOverridesEnv(t *testing.T) {
	config := parseStdConnString(t)
	clearConnectionEnv(t)

	t.Setenv("PGHOST", "unreachable.invalid")
	t.Setenv("PGPASSWORD", config.Password)

	resolved, err := db.ResolveConnectionParams(
		"",
		&db.GranularConnFlags{
			Host:     config.Host,
			Port:     config.Port,
			Username: config.Username,
			Database: config.Database,
			SSLMode:  "disable",
		},
		nil,
		db.LoadFromEnvironment(),
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, config.Host, resolved.Host)

	pingSucceeds(t, connectWithConfig(t, resolved))
}

func TestPrecedence_PGEnvFallback(t *testing.T) {
	config := parseStdConnString(t)
	clearConnectionEnv(t)

	t.Setenv("PGHOST", config.Host)
	t.Setenv("PGUSER", config.Username)
	t.Setenv("PGPASSWORD", config.Password)
	t.Setenv("PGDATABASE", config.Database)
	t.Setenv("PGSSLMODE", "disable")

	resolved, err := db.ResolveConnectionParams("", &db.GranularConnFlags{Port: config.Port}, nil, db.LoadFromEnvironment(), nil)
	require.NoError(t, err)

	assert.Equal(t, config.Host, resolved.Host)
	assert.Equal(t, config.Username, resolved.Username)
	pingSucceeds(t, connectWithConfig(t, resolved))
}

func TestPrecedence_LegacyDBEnv(t *testing.T) {
	config := parseStdConnString(t)
	clearConnectionEnv(t)

	t.Setenv("DB_HOST", config.Host)
	t.Setenv("DB_USER", config.Username)
	t.Setenv("DB_PASSWORD", config.Password)
	t.Setenv("DB_NAME", config.Database)
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("DB_CONNECT_TIMEOUT", "5")

	resolved, err := db.ResolveConnectionParams("", &db.GranularConnFlags{Port: config.Port}, nil, db.LoadFromEnvironment(), nil)
	require.NoError(t, err)

	assert.Equal(t, config.Database, resolved.Database)
	assert.Equal(t, float64(5), resolved.ConnectTimeout.Seconds())
	pingSucceeds(t, connectWithConfig(t, resolved))
}

func TestPrecedence_DatabaseURL(t *testing.T) {
	config := parseStdConnString(t)
	clearConnectionEnv(t)
	t.Setenv("DATABASE_URL", db.BuildConnectionString(config))

	resolved, err := db.ResolveConnectionParams("", nil, nil, db.LoadFromEnvironment(), nil)
	require.NoError(t, err)

	pingSucceeds(t, connectWithConfig(t, resolved))
}

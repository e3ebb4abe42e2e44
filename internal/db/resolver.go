package db

import (
	"fmt"
	"os"
	"time"

	"github.com/framework-cg/pgload/internal/config"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// GranularConnFlags holds the libpq-style connection flags (-h, -p, -U, -d).
// There is deliberately no password flag: use $PGPASSWORD, $DB_PASSWORD,
// ~/.pgpass or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty reports whether no server-selecting flag was given.
// Database is excluded because it may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g == nil || (g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "")
}

// CloudFlags selects and configures cloud IAM authentication from the command line.
// The Azure client secret is only read from $AZURE_CLIENT_SECRET.
type CloudFlags struct {
	AuthMethod     string
	AzureTenantID  string
	AzureClientID  string
	AWSRegion      string
	GoogleInstance string
}

// EnvVars is a snapshot of the environment variables that affect connections.
type EnvVars struct {
	PGLOAD_CONNECTION_STRING string
	DATABASE_URL             string

	// libpq variables, see https://www.postgresql.org/docs/current/libpq-envars.html
	PGHOST            string
	PGPORT            string
	PGUSER            string
	PGPASSWORD        string
	PGDATABASE        string
	PGSSLMODE         string
	PGCONNECT_TIMEOUT string

	// Legacy variables of the .env files this tool replaces.
	DB_HOST            string
	DB_PORT            string
	DB_USER            string
	DB_PASSWORD        string
	DB_NAME            string
	DB_SSLMODE         string
	DB_CONNECT_TIMEOUT string
	DB_KEEPALIVE_IDLE  string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
	AWS_REGION          string
}

// LoadFromEnvironment reads EnvVars from the process environment.
// Call godotenv.Load first to include a .env file.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGLOAD_CONNECTION_STRING: os.Getenv("PGLOAD_CONNECTION_STRING"),
		DATABASE_URL:             os.Getenv("DATABASE_URL"),
		PGHOST:                   os.Getenv("PGHOST"),
		PGPORT:                   os.Getenv("PGPORT"),
		PGUSER:                   os.Getenv("PGUSER"),
		PGPASSWORD:               os.Getenv("PGPASSWORD"),
		PGDATABASE:               os.Getenv("PGDATABASE"),
		PGSSLMODE:                os.Getenv("PGSSLMODE"),
		PGCONNECT_TIMEOUT:        os.Getenv("PGCONNECT_TIMEOUT"),
		DB_HOST:                  os.Getenv("DB_HOST"),
		DB_PORT:                  os.Getenv("DB_PORT"),
		DB_USER:                  os.Getenv("DB_USER"),
		DB_PASSWORD:              os.Getenv("DB_PASSWORD"),
		DB_NAME:                  os.Getenv("DB_NAME"),
		DB_SSLMODE:               os.Getenv("DB_SSLMODE"),
		DB_CONNECT_TIMEOUT:       os.Getenv("DB_CONNECT_TIMEOUT"),
		DB_KEEPALIVE_IDLE:        os.Getenv("DB_KEEPALIVE_IDLE"),
		AZURE_TENANT_ID:          os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:          os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:      os.Getenv("AZURE_CLIENT_SECRET"),
		AWS_REGION:               os.Getenv("AWS_REGION"),
	}
}

// ResolveConnectionParams merges every configuration source into one ConnectionConfig.
//
// Precedence:
//  1. Connection string: connStringFlag, $PGLOAD_CONNECTION_STRING, $DATABASE_URL.
//     Only -d may be combined with it, to override the database.
//  2. Granular flags (-h, -p, -U, -d, --sslmode)
//  3. PG* environment variables
//  4. DB_* environment variables
//  5. pgload.yaml connection section
//  6. Defaults (localhost:5432/postgres, sslmode=prefer)
//
// Cloud authentication is taken from cloud flags, then the yaml auth_method.
// Azure is also selected when $AZURE_TENANT_ID or $AZURE_CLIENT_ID is set.
func ResolveConnectionParams(
	connStringFlag string,
	granular *GranularConnFlags,
	cloud *CloudFlags,
	env *EnvVars,
	project *config.ConnectionConfig,
) (*pgload.ConnectionConfig, error) {
	if granular == nil {
		granular = &GranularConnFlags{}
	}
	if cloud == nil {
		cloud = &CloudFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}
	if project == nil {
		project = &config.ConnectionConfig{}
	}

	if connStringFlag != "" && !granular.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/warehouse\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U etl -d warehouse\n"+
				"  3. Environment variables: PGHOST/PGPORT/PGUSER or DB_HOST/DB_PORT/DB_USER: %w",
			pgload.ErrInvalidConfig,
		)
	}

	connStr := firstNonEmpty(connStringFlag, env.PGLOAD_CONNECTION_STRING)
	if connStr == "" && granular.IsEmpty() {
		connStr = env.DATABASE_URL
	}

	var (
		cfg *pgload.ConnectionConfig
		err error
	)
	if connStr != "" {
		cfg, err = ParseConnectionString(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w", err)
		}
		if granular.Database != "" {
			cfg.Database = granular.Database
		}
	} else {
		cfg, err = resolveFromGranularParams(granular, env, project)
		if err != nil {
			return nil, err
		}
	}

	if err := applyCloudAuth(cfg, cloud, env, project); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc *config.ConnectionConfig) (*pgload.ConnectionConfig, error) {
	cfg := defaultConnectionConfig()

	cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, env.DB_HOST, pc.Host, DefaultHost)

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := parsePort(env.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("$PGPORT: %w", err)
		}
		cfg.Port = port
	case env.DB_PORT != "":
		port, err := parsePort(env.DB_PORT)
		if err != nil {
			return nil, fmt.Errorf("$DB_PORT: %w", err)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	}

	cfg.Username = firstNonEmpty(flags.Username, env.PGUSER, env.DB_USER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = firstNonEmpty(env.PGPASSWORD, env.DB_PASSWORD)
	cfg.Database = firstNonEmpty(flags.Database, env.PGDATABASE, env.DB_NAME, pc.Database, DefaultDatabase)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, env.PGSSLMODE, env.DB_SSLMODE, pc.SSLMode, DefaultSSLMode)

	timeout, err := resolveDuration("connect timeout",
		pgload.DefaultConnectTimeout, env.PGCONNECT_TIMEOUT, env.DB_CONNECT_TIMEOUT, pc.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	cfg.ConnectTimeout = timeout

	keepAlive, err := resolveDuration("keepalive idle",
		pgload.DefaultKeepAliveIdle, env.DB_KEEPALIVE_IDLE, pc.KeepAliveIdle)
	if err != nil {
		return nil, err
	}
	cfg.KeepAliveIdle = keepAlive

	return cfg, nil
}

// applyCloudAuth sets AuthMethod and the provider-specific fields.
func applyCloudAuth(cfg *pgload.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc *config.ConnectionConfig) error {
	method, err := pgload.ParseAuthMethod(firstNonEmpty(flags.AuthMethod, pc.AuthMethod))
	if err != nil {
		return err
	}

	tenantID := firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	clientID := firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
	if method == pgload.AuthMethodStandard && (flags.AzureTenantID != "" || flags.AzureClientID != "" ||
		env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != "") {
		method = pgload.AuthMethodAzureEntraID
	}

	cfg.AuthMethod = method
	switch method {
	case pgload.AuthMethodAzureEntraID:
		cfg.AzureTenantID = tenantID
		cfg.AzureClientID = clientID
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case pgload.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case pgload.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

// resolveDuration returns the first non-empty source parsed as seconds or a
// Go duration, or def when every source is empty.
func resolveDuration(name string, def time.Duration, sources ...string) (time.Duration, error) {
	for _, s := range sources {
		if s == "" {
			continue
		}
		d, err := config.ParseDuration(s, def)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return d, nil
	}
	return def, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/framework-cg/pgload/internal/config"
	"github.com/framework-cg/pgload/internal/db"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	authMethod     string
	azureTenantID  string
	azureClientID  string
	awsRegion      string
	googleInstance string
}

// addConnectionFlags registers the connection flags shared by every database command.
func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	cmd.Flags().StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username, --sslmode).\n"+
			"Alternative: PGLOAD_CONNECTION_STRING or DATABASE_URL environment variable.\n"+
			"Example: postgresql://etl@localhost:5432/warehouse")

	// Precedence: flag > PG* > DB_* > pgload.yaml > default
	cmd.Flags().StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host (default: $PGHOST, $DB_HOST or localhost)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port (default: $PGPORT, $DB_PORT or 5432)")
	cmd.Flags().StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER, $DB_USER or current OS user)")
	cmd.Flags().StringVarP(&f.database, "database", "d", "",
		"Database name (default: $PGDATABASE, $DB_NAME or postgres).\n"+
			"Overrides the database of a connection string.")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	cmd.Flags().StringVar(&f.authMethod, "auth", "",
		"Authentication: standard|azure|aws|google (default: standard)")
	cmd.Flags().StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	cmd.Flags().StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	cmd.Flags().StringVar(&f.awsRegion, "aws-region", "",
		"AWS region for RDS IAM tokens (overrides $AWS_REGION)")
	cmd.Flags().StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
}

// loadProjectConfig loads .env and pgload.yaml. A missing pgload.yaml yields
// an empty configuration.
func loadProjectConfig() (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadOptional(rootFlags.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return cfg, nil
}

// resolveConnectionFromFlags resolves the connection from flags, environment and project config.
func resolveConnectionFromFlags(flags connectionFlags, projectCfg *config.ProjectConfig) (*pgload.ConnectionConfig, error) {
	granular := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
	}
	cloud := &db.CloudFlags{
		AuthMethod:     flags.authMethod,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
		AWSRegion:      flags.awsRegion,
		GoogleInstance: flags.googleInstance,
	}

	var project *config.ConnectionConfig
	if projectCfg != nil {
		project = &projectCfg.Connection
	}
	return db.ResolveConnectionParams(flags.connection, granular, cloud, db.LoadFromEnvironment(), project)
}

// logConnectionVerbose logs the resolved connection without credentials.
func logConnectionVerbose(logger pgload.Logger, cfg *pgload.ConnectionConfig) {
	logger.Verbose("Connection resolved: host=%s port=%d user=%s database=%s sslmode=%s auth=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Database, cfg.SSLMode, cfg.AuthMethod)
}

package pgload

import (
	"fmt"
	"strings"
	"time"
)

// Operation names reported in outcomes, logs and metrics.
const (
	OperationInsert = "insert"
	OperationUpsert = "upsert"
)

// ConflictPolicy selects what an upsert does with rows that collide on the conflict columns.
type ConflictPolicy string

const (
	// ConflictUpdate updates colliding rows, skipping rows whose updatable columns are unchanged.
	ConflictUpdate ConflictPolicy = "update"

	// ConflictNothing leaves colliding rows untouched.
	ConflictNothing ConflictPolicy = "nothing"
)

// ParseConflictPolicy converts user input into a ConflictPolicy.
// The empty string selects ConflictUpdate.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ConflictUpdate, nil
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate returns ErrInvalidConflictPolicy for anything but "update" or "nothing".
func (p ConflictPolicy) Validate() error {
	switch p {
	case ConflictUpdate, ConflictNothing:
		return nil
	default:
		return fmt.Errorf("policy %q must be %q or %q: %w", string(p), ConflictUpdate, ConflictNothing, ErrInvalidConflictPolicy)
	}
}

// InsertOptions tunes an Insert call.
type InsertOptions struct {
	// ChunkSize is the number of rows per batched execution.
	// Zero selects the writer's default (DefaultInsertChunkSize).
	ChunkSize int
}

// UpsertOptions configures an Upsert call.
type UpsertOptions struct {
	// ConflictColumns is the uniqueness constraint the destination enforces. Required.
	ConflictColumns []string

	// ExcludeFromUpdate lists columns that are inserted but never overwritten on conflict.
	ExcludeFromUpdate []string

	// Policy defaults to ConflictUpdate when empty.
	Policy ConflictPolicy

	// ChunkSize is the number of rows per batched execution.
	// Zero selects the writer's default (DefaultUpsertChunkSize).
	ChunkSize int
}

// EffectivePolicy returns the policy with the zero value resolved.
func (o UpsertOptions) EffectivePolicy() ConflictPolicy {
	if o.Policy == "" {
		return ConflictUpdate
	}
	return o.Policy
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	KeepAliveIdle    time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance)
	// required for AuthMethodGoogleIAM.
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod converts the auth_method value of pgload.yaml into an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam", "aws_iam":
		return AuthMethodAWSIAM, nil
	case "google", "google-iam", "google_iam", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "azure_entra_id", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}

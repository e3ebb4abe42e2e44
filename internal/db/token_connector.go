package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framework-cg/pgload/internal/retry"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// tokenExpiryWarning is the remaining lifetime below which a fresh token is reported.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector connects with a token from a TokenProvider as the password.
// A fresh token is requested on every attempt.
type TokenBasedConnector struct {
	config        *pgload.ConnectionConfig
	tokenProvider TokenProvider
	logger        pgload.Logger
	retryExecutor *retry.Executor
}

// NewTokenBasedConnector creates a token-authenticated connector.
func NewTokenBasedConnector(config *pgload.ConnectionConfig, tokenProvider TokenProvider, logger pgload.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		logger:        logger,
		retryExecutor: newRetryExecutor(logger),
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", c.tokenProvider, err)
		}
		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Warn("%s token expires in %v", c.tokenProvider, remaining.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token

		pool, err = openPool(ctx, BuildConnectionString(&withToken), c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func newAWSConnector(config *pgload.ConnectionConfig, logger pgload.Logger) (pgload.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, tokenProvider, logger), nil
}

// newAzureConnector uses a service principal when tenant, client and secret
// are all set, and DefaultAzureCredential otherwise.
func newAzureConnector(config *pgload.ConnectionConfig, logger pgload.Logger) (pgload.Connector, error) {
	var (
		tokenProvider TokenProvider
		err           error
	)
	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
	}
	if err != nil {
		return nil, err
	}
	return NewTokenBasedConnector(config, tokenProvider, logger), nil
}

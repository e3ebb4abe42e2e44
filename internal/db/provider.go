package db

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// PoolProvider hands out pooled connections, opening one pool per database on first use.
//
// Thread-Safety: safe for concurrent use.
type PoolProvider struct {
	config    *pgload.ConnectionConfig
	logger    pgload.Logger
	connect   func(cfg *pgload.ConnectionConfig, logger pgload.Logger) (pgload.Connector, error)
	mu        sync.Mutex
	pools     map[string]*pgxpool.Pool
	closers   []io.Closer
	defaultDB string
}

// NewPoolProvider creates a provider for config. No connection is made until Acquire.
// Panics if config or logger is nil.
func NewPoolProvider(config *pgload.ConnectionConfig, logger pgload.Logger) *PoolProvider {
	if config == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &PoolProvider{
		config:    config,
		logger:    logger,
		connect:   NewConnector,
		pools:     make(map[string]*pgxpool.Pool),
		defaultDB: config.Database,
	}
}

// NewPoolProviderFromPool wraps an existing pool. Only the pool's own database
// (or the empty name) can be acquired. Close does not close the pool.
func NewPoolProviderFromPool(pool *pgxpool.Pool) *PoolProvider {
	if pool == nil {
		panic("pool cannot be nil")
	}
	database := pool.Config().ConnConfig.Database
	return &PoolProvider{
		pools:     map[string]*pgxpool.Pool{database: pool},
		defaultDB: database,
	}
}

// Acquire returns a connection to database, or to the configured database when it is empty.
func (p *PoolProvider) Acquire(ctx context.Context, database string) (pgload.Conn, error) {
	pool, err := p.Pool(ctx, database)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w: %w", pgload.ErrConnectionFailed, err)
	}
	return &poolConn{conn: conn}, nil
}

// Pool returns the pool for database, connecting if needed.
func (p *PoolProvider) Pool(ctx context.Context, database string) (*pgxpool.Pool, error) {
	if database == "" {
		database = p.defaultDB
	}

	p.mu.Lock()
	pool, ok := p.pools[database]
	p.mu.Unlock()
	if ok {
		return pool, nil
	}
	if p.config == nil {
		return nil, fmt.Errorf("database %q is not served by this pool: %w", database, pgload.ErrConnectionFailed)
	}

	// Connecting may retry and fetch cloud tokens, so it runs unlocked.
	cfg := *p.config
	cfg.Database = database
	connector, err := p.connect(&cfg, p.logger)
	if err != nil {
		return nil, err
	}

	p.logger.Verbose("Connecting to %s:%d/%s", cfg.Host, cfg.Port, database)
	pool, err = connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.pools[database]; ok {
		pool.Close()
		closeConnector(connector)
		return existing, nil
	}
	if c, ok := connector.(io.Closer); ok {
		p.closers = append(p.closers, c)
	}
	p.pools[database] = pool
	return pool, nil
}

func closeConnector(connector pgload.Connector) {
	if c, ok := connector.(io.Closer); ok {
		_ = c.Close()
	}
}

// Close closes every pool this provider opened.
func (p *PoolProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config == nil {
		return nil
	}
	for name, pool := range p.pools {
		pool.Close()
		delete(p.pools, name)
	}
	var firstErr error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.closers = nil
	return firstErr
}

var _ pgload.ConnectionProvider = (*PoolProvider)(nil)

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framework-cg/pgload/internal/logging"
	"github.com/framework-cg/pgload/pkg/pgload"
)

type failingConnector struct {
	err    error
	closed bool
}

func (f *failingConnector) Connect(context.Context) (*pgxpool.Pool, error) { return nil, f.err }

func (f *failingConnector) Close() error {
	f.closed = true
	return nil
}

func TestPoolProvider_AcquireUsesRequestedDatabase(t *testing.T) {
	cfg := &pgload.ConnectionConfig{Host: "h", Port: 5432, Database: "warehouse"}
	p := NewPoolProvider(cfg, logging.NewNullLogger())

	var databases []string
	connector := &failingConnector{err: pgload.ErrConnectionFailed}
	p.connect = func(c *pgload.ConnectionConfig, _ pgload.Logger) (pgload.Connector, error) {
		databases = append(databases, c.Database)
		return connector, nil
	}

	_, err := p.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, pgload.ErrConnectionFailed)
	_, err = p.Acquire(context.Background(), "staging")
	assert.ErrorIs(t, err, pgload.ErrConnectionFailed)

	assert.Equal(t, []string{"warehouse", "staging"}, databases)
	assert.Equal(t, "warehouse", cfg.Database, "the shared config must not be mutated")
	assert.True(t, connector.closed, "connectors of failed pools are closed")
}

type blockingConnector struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingConnector) Connect(context.Context) (*pgxpool.Pool, error) {
	close(b.entered)
	<-b.release
	return nil, pgload.ErrConnectionFailed
}

func TestPoolProvider_SlowConnectDoesNotBlockOpenPools(t *testing.T) {
	p := NewPoolProvider(&pgload.ConnectionConfig{Host: "h", Port: 5432, Database: "warehouse"}, logging.NewNullLogger())

	fast, err := pgxpool.New(context.Background(), "postgres://etl@127.0.0.1:1/fast")
	require.NoError(t, err)
	defer fast.Close()
	p.pools["fast"] = fast

	slow := &blockingConnector{entered: make(chan struct{}), release: make(chan struct{})}
	p.connect = func(*pgload.ConnectionConfig, pgload.Logger) (pgload.Connector, error) { return slow, nil }

	done := make(chan error, 1)
	go func() {
		_, err := p.Pool(context.Background(), "slow")
		done <- err
	}()
	<-slow.entered

	got := make(chan *pgxpool.Pool, 1)
	go func() {
		pool, _ := p.Pool(context.Background(), "fast")
		got <- pool
	}()

	select {
	case pool := <-got:
		assert.Same(t, fast, pool)
	case <-time.After(2 * time.Second):
		t.Fatal("lookup of an open pool waited for another database's connect")
	}

	close(slow.release)
	assert.ErrorIs(t, <-done, pgload.ErrConnectionFailed)
}

func TestPoolProvider_ConnectorError(t *testing.T) {
	p := NewPoolProvider(&pgload.ConnectionConfig{}, logging.NewNullLogger())
	boom := errors.New("no connector")
	p.connect = func(*pgload.ConnectionConfig, pgload.Logger) (pgload.Connector, error) { return nil, boom }

	conn, err := p.Acquire(context.Background(), "x")
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, p.Close())
}

func TestNewPoolProvider_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewPoolProvider(nil, logging.NewNullLogger()) })
	assert.Panics(t, func() { NewPoolProvider(&pgload.ConnectionConfig{}, nil) })
	assert.Panics(t, func() { NewPoolProviderFromPool(nil) })
}

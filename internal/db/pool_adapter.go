package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framework-cg/pgload/pkg/pgload"
)

// poolConn adapts *pgxpool.Conn to pgload.Conn so the writer never sees pgxpool types.
type poolConn struct {
	conn *pgxpool.Conn
}

// Begin starts a transaction on the underlying connection.
func (p *poolConn) Begin(ctx context.Context) (pgload.Tx, error) {
	return p.conn.Begin(ctx)
}

// Release returns the connection to the pool. Safe to call more than once.
func (p *poolConn) Release() {
	if p.conn != nil {
		p.conn.Release()
		p.conn = nil
	}
}

var _ pgload.Conn = (*poolConn)(nil)

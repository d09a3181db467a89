package dbconn

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

type PGConn struct {
	id          ID
	conn        *pgx.Conn
	version     string
	connStr     string
	isCockroach bool
}

var _ Conn = (*PGConn)(nil)

func ConnectPG(ctx context.Context, id ID, connStr string) (*PGConn, error) {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing connection string for %s", id)
	}
	return ConnectPGConfig(ctx, id, connStr, cfg)
}

func ConnectPGConfig(ctx context.Context, id ID, connStr string, cfg *pgx.ConnConfig) (*PGConn, error) {
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", id)
	}
	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrapf(err, "error getting version of %s", id)
	}
	return NewPGConn(id, conn, connStr, version), nil
}

func NewPGConn(id ID, conn *pgx.Conn, connStr string, version string) *PGConn {
	return &PGConn{
		id:          id,
		conn:        conn,
		version:     version,
		connStr:     connStr,
		isCockroach: strings.Contains(version, "CockroachDB"),
	}
}

func (c *PGConn) ID() ID {
	return c.id
}

func (c *PGConn) IsCockroach() bool {
	return c.isCockroach
}

func (c *PGConn) Dialect() Dialect {
	if c.IsCockroach() {
		return DialectCockroach
	}
	return DialectPostgres
}

func (c *PGConn) ConnStr() string {
	return c.connStr
}

// PGX exposes the underlying pgx connection.
func (c *PGConn) PGX() *pgx.Conn {
	return c.conn
}

func (c *PGConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *PGConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *PGConn) Clone(ctx context.Context) (Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, c.conn.Config())
	if err != nil {
		return nil, err
	}
	return NewPGConn(c.id, conn, c.connStr, c.version), nil
}

func (c *PGConn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

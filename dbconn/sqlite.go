package dbconn

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConn is a Conn over a SQLite database file, or an in-memory database
// when the DSN uses mode=memory.
type SQLiteConn struct {
	sqlDBConn
}

var _ Conn = (*SQLiteConn)(nil)

// ConnectSQLite accepts sqlite:///path/to.db, sqlite://file:name?mode=memory
// or a bare go-sqlite3 DSN.
func ConnectSQLite(ctx context.Context, id ID, connStr string) (*SQLiteConn, error) {
	dsn := strings.TrimPrefix(connStr, "sqlite3://")
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", id)
	}
	// SQLite serialises access anyway; a single connection also keeps
	// in-memory databases alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "error connecting to %s", id)
	}
	return &SQLiteConn{sqlDBConn: sqlDBConn{id: id, connStr: connStr, db: db}}, nil
}

func (c *SQLiteConn) Dialect() Dialect {
	return DialectSQLite
}

// Exec runs a statement which returns no rows. It is used to seed
// databases in tests.
func (c *SQLiteConn) Exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, q, args...)
}

func (c *SQLiteConn) Clone(ctx context.Context) (Conn, error) {
	return ConnectSQLite(ctx, c.id, c.connStr)
}

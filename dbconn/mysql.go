package dbconn

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/mysqlurl"
	_ "github.com/go-sql-driver/mysql"
)

type MySQLConn struct {
	sqlDBConn
	database string
}

var _ Conn = (*MySQLConn)(nil)

func ConnectMySQL(ctx context.Context, id ID, connStr string) (*MySQLConn, error) {
	cfg, err := mysqlurl.Parse(connStr)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", id)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "error connecting to %s", id)
	}
	return &MySQLConn{
		sqlDBConn: sqlDBConn{id: id, connStr: connStr, db: db},
		database:  cfg.DBName,
	}, nil
}

func (c *MySQLConn) Database() string {
	return c.database
}

func (c *MySQLConn) Dialect() Dialect {
	return DialectMySQL
}

func (c *MySQLConn) Clone(ctx context.Context) (Conn, error) {
	return ConnectMySQL(ctx, c.id, c.connStr)
}

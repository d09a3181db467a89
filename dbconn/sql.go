package dbconn

import (
	"context"
	"database/sql"
)

// sqlDBConn implements the query half of Conn for database/sql drivers.
type sqlDBConn struct {
	id      ID
	connStr string
	db      *sql.DB
}

func (c *sqlDBConn) ID() ID {
	return c.id
}

func (c *sqlDBConn) ConnStr() string {
	return c.connStr
}

// DB exposes the underlying database/sql handle.
func (c *sqlDBConn) DB() *sql.DB {
	return c.db
}

func (c *sqlDBConn) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &sqlRows{Rows: rows, numCols: len(cols)}, nil
}

func (c *sqlDBConn) QueryRow(ctx context.Context, q string, args ...any) Row {
	return c.db.QueryRowContext(ctx, q, args...)
}

func (c *sqlDBConn) Close(ctx context.Context) error {
	return c.db.Close()
}

type sqlRows struct {
	*sql.Rows
	numCols int
}

func (r *sqlRows) Values() ([]any, error) {
	vals := make([]any, r.numCols)
	dest := make([]any, r.numCols)
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := r.Scan(dest...); err != nil {
		return nil, err
	}
	return vals, nil
}

func (r *sqlRows) Close() {
	_ = r.Rows.Close()
}

package dbconn

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

type ID string

// Rows is a forward-only stream of result rows. Values returns the current
// row with NULLs as nil.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Row is the result of a single-row query.
type Row interface {
	Scan(dest ...any) error
}

// Conn is a handle to a queryable relational source. A Conn must not be
// used by two comparisons concurrently; use Clone to get a separate handle.
type Conn interface {
	ID() ID
	Dialect() Dialect
	// ConnStr is the connection string the Conn was created from.
	ConnStr() string
	// Query executes sql with positional args and streams the results.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	// Clone creates a new Conn with the same underlying connection arguments.
	Clone(ctx context.Context) (Conn, error)
	// Close closes the connection.
	Close(ctx context.Context) error
}

func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, errors.Newf("empty connection string")
	}

	before := strings.SplitN(connStr, "://", 2)
	scheme := strings.ToLower(before[0])

	switch {
	case strings.Contains(scheme, "postgres"), strings.Contains(scheme, "cockroach"):
		if strings.Contains(scheme, "cockroach") {
			connStr = "postgresql://" + before[len(before)-1]
		}
		u, err := url.Parse(connStr)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse url: %s", connStr)
		}
		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(scheme, "mysql"):
		if id == "" {
			id = "mysql"
		}
		return ConnectMySQL(ctx, id, connStr)
	case strings.Contains(scheme, "sqlite"), strings.HasPrefix(scheme, "file:"):
		if id == "" {
			id = "sqlite"
		}
		return ConnectSQLite(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised scheme %s from %s", before[0], connStr)
}

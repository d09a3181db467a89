package dbconn

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/lexbase"
	"github.com/pingcap/tidb/parser/format"
)

// Dialect identifies the SQL flavour spoken by a Conn.
type Dialect string

const (
	DialectPostgres  Dialect = "PostgreSQL"
	DialectCockroach Dialect = "CockroachDB"
	DialectMySQL     Dialect = "MySQL"
	DialectSQLite    Dialect = "SQLite"
)

// QuoteIdent always quotes name so that it can be safely spliced into SQL.
func (d Dialect) QuoteIdent(name string) string {
	switch d {
	case DialectMySQL:
		var sb strings.Builder
		format.NewRestoreCtx(format.DefaultRestoreFlags, &sb).WriteName(name)
		return sb.String()
	default:
		return lexbase.EscapeSQLIdent(name)
	}
}

// Placeholder returns the bind parameter marker for the n-th (1-indexed)
// argument.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case DialectPostgres, DialectCockroach:
		return "$" + strconv.Itoa(n)
	default:
		return "?"
	}
}

func (d Dialect) IsPostgresWire() bool {
	return d == DialectPostgres || d == DialectCockroach
}

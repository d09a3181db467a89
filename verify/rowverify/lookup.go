package rowverify

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/rowvalue"
)

// Lookup counts the rows of a reference table equal to one target row.
type Lookup struct {
	SQL  string
	Args []any
}

// BuildLookup returns the lookup for row against the given reference
// columns. A NULL value becomes `col IS NULL` since `col = NULL` never
// matches; every other value is bound as a parameter.
func BuildLookup(
	dialect dbconn.Dialect, table dbtable.Name, columns []string, row rowvalue.Row,
) (Lookup, error) {
	if len(columns) == 0 {
		return Lookup{}, errors.AssertionFailedf("lookup on %s requires columns", table)
	}
	if len(columns) != len(row) {
		return Lookup{}, errors.AssertionFailedf(
			"lookup on %s has %d columns but %d values", table, len(columns), len(row),
		)
	}
	var sb strings.Builder
	sb.WriteString("SELECT count(*) FROM ")
	sb.WriteString(table.SQL(dialect))
	sb.WriteString(" WHERE ")
	var args []any
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(dialect.QuoteIdent(col))
		if row[i] == nil {
			sb.WriteString(" IS NULL")
			continue
		}
		args = append(args, lookupArg(dialect, row[i]))
		sb.WriteString(" = ")
		sb.WriteString(dialect.Placeholder(len(args)))
	}
	return Lookup{SQL: sb.String(), Args: args}, nil
}

// lookupArg converts values decoded by one driver into something the
// reference driver can bind. pgx accepts its own decoded types, the
// database/sql drivers only accept driver.Value kinds.
func lookupArg(dialect dbconn.Dialect, v any) any {
	if dialect.IsPostgresWire() {
		return v
	}
	switch v.(type) {
	case string, []byte, bool, int64, int32, int16, int8, int, uint64, uint32, uint16, uint8, float64, float32, time.Time:
		return v
	}
	return rowvalue.Canonical(v)
}

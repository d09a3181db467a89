package rowiterator

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
)

type scanQuery struct {
	dialect dbconn.Dialect
	table   Table
	base    string
}

func newScanQuery(dialect dbconn.Dialect, table Table) (scanQuery, error) {
	if len(table.ColumnNames) == 0 {
		return scanQuery{}, errors.AssertionFailedf("no columns to scan on %s", table.Name)
	}
	if len(table.OrderBy) == 0 {
		return scanQuery{}, errors.AssertionFailedf("paged scan of %s requires an order key", table.Name)
	}
	var sb strings.Builder
	sb.WriteString("SELECT ")
	writeIdentList(&sb, dialect, table.ColumnNames)
	sb.WriteString(" FROM ")
	sb.WriteString(table.SQL(dialect))
	sb.WriteString(" ORDER BY ")
	writeIdentList(&sb, dialect, table.OrderBy)
	return scanQuery{dialect: dialect, table: table, base: sb.String()}, nil
}

// generate returns the query for the page of at most limit rows starting at
// offset.
func (sq scanQuery) generate(limit int, offset int64) string {
	return sq.base + " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.FormatInt(offset, 10)
}

// SelectAll returns an unordered full scan of the given columns.
func SelectAll(dialect dbconn.Dialect, table Table) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	writeIdentList(&sb, dialect, table.ColumnNames)
	sb.WriteString(" FROM ")
	sb.WriteString(table.SQL(dialect))
	return sb.String()
}

// CountRows returns a query counting every row of the table.
func CountRows(dialect dbconn.Dialect, table Table) string {
	return "SELECT count(*) FROM " + table.SQL(dialect)
}

func writeIdentList(sb *strings.Builder, dialect dbconn.Dialect, idents []string) {
	for i, ident := range idents {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(dialect.QuoteIdent(ident))
	}
}

// Package keyverify finds orphaned foreign keys: values of a column with no
// matching value in the column of another table.
package keyverify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/genomehc/hcverify/verify/verifybase"
)

// DefaultSampleSize is the number of orphaned values fetched per direction.
const DefaultSampleSize = 20

// Key is a column of a table.
type Key struct {
	Table  dbtable.Name
	Column string
}

func (k Key) String() string {
	return k.Table.String() + "." + k.Column
}

// ParseKey parses a key of the form [schema.]table.column.
func ParseKey(s string) (Key, error) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return Key{}, errors.Newf("key %q must be table.column", s)
	}
	return Key{Table: dbtable.ParseName(s[:idx]), Column: s[idx+1:]}, nil
}

// Request checks that every non-NULL value of From exists in To and, unless
// OneWayOnly is set, the reverse.
type Request struct {
	From       Key
	To         Key
	OneWayOnly bool
}

// Direction is the outcome of one anti-join.
type Direction struct {
	From    Key
	To      Key
	Orphans int64
	// Sample holds up to the sample size of the distinct orphaned values,
	// in ascending order.
	Sample []any
}

type Result struct {
	// Orphans sums the orphans of every direction checked.
	Orphans    int64
	Directions []Direction
	// EmptyTable names a table found empty, in which case nothing was
	// checked and Orphans is zero.
	EmptyTable string
}

// Verify counts orphans with an anti-join on conn. NULL keys are never
// orphans. Every sampled orphan value is added to collector as a SetMismatch
// violation; a direction with orphans but no sample adds one violation
// carrying the count.
func Verify(
	ctx context.Context,
	conn dbconn.Conn,
	req Request,
	sampleSize int,
	collector *inconsistency.Collector,
) (Result, error) {
	var res Result
	if sampleSize < 0 {
		return res, errors.Newf("sample size must be >= 0, got %d", sampleSize)
	}
	for _, k := range []Key{req.From, req.To} {
		desc, err := dbtable.Describe(ctx, conn, k.Table)
		if err != nil {
			return res, err
		}
		if !hasColumn(desc, k.Column) {
			collector.Abort(inconsistency.Violation{
				Kind:    inconsistency.SchemaIncompatible,
				Locator: k.Table.String(),
				Detail:  fmt.Sprintf("column %s does not exist", k.Column),
			})
			return res, nil
		}
	}
	for _, k := range []Key{req.From, req.To} {
		empty, err := isEmpty(ctx, conn, k.Table)
		if err != nil {
			return res, err
		}
		if empty {
			res.EmptyTable = k.Table.String()
			return res, nil
		}
	}

	dirs := [][2]Key{{req.From, req.To}}
	if !req.OneWayOnly {
		dirs = append(dirs, [2]Key{req.To, req.From})
	}
	for _, dir := range dirs {
		d, err := verifyDirection(ctx, conn, dir[0], dir[1], sampleSize)
		if err != nil {
			return res, err
		}
		res.Orphans += d.Orphans
		res.Directions = append(res.Directions, d)
		if d.Orphans > 0 && len(d.Sample) == 0 {
			collector.Add(inconsistency.Violation{
				Kind:    inconsistency.SetMismatch,
				Locator: d.From.String(),
				Detail:  fmt.Sprintf("%d orphans with no matching %s", d.Orphans, d.To),
			})
		}
		for _, v := range d.Sample {
			collector.Add(inconsistency.Violation{
				Kind:    inconsistency.SetMismatch,
				Locator: fmt.Sprintf("%s=%s", d.From, rowvalue.FormatValue(v)),
				Detail:  fmt.Sprintf("no matching %s (%d orphans in total)", d.To, d.Orphans),
			})
		}
	}
	return res, nil
}

func hasColumn(desc dbtable.Descriptor, col string) bool {
	for _, c := range desc.Columns {
		if strings.EqualFold(c.Name, col) {
			return true
		}
	}
	return false
}

func isEmpty(ctx context.Context, conn dbconn.Conn, table dbtable.Name) (bool, error) {
	rows, err := conn.Query(ctx, "SELECT 1 FROM "+table.SQL(conn.Dialect())+" LIMIT 1")
	if err != nil {
		return false, verifybase.ConnectionError(err, "error checking %s on %s", table, conn.ID())
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, verifybase.ConnectionError(err, "error checking %s on %s", table, conn.ID())
	}
	return !found, nil
}

func verifyDirection(
	ctx context.Context, conn dbconn.Conn, from Key, to Key, sampleSize int,
) (Direction, error) {
	d := Direction{From: from, To: to}
	dialect := conn.Dialect()
	fromClause := antiJoin(dialect, from, to)
	if err := conn.QueryRow(ctx, "SELECT count(*)"+fromClause).Scan(&d.Orphans); err != nil {
		return d, verifybase.ConnectionError(err, "error counting orphans of %s on %s", from, conn.ID())
	}
	if d.Orphans == 0 || sampleSize == 0 {
		return d, nil
	}
	col := "o." + dialect.QuoteIdent(from.Column)
	rows, err := conn.Query(
		ctx,
		"SELECT DISTINCT "+col+fromClause+" ORDER BY "+col+" LIMIT "+strconv.Itoa(sampleSize),
	)
	if err != nil {
		return d, verifybase.ConnectionError(err, "error sampling orphans of %s on %s", from, conn.ID())
	}
	defer rows.Close()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return d, errors.Wrapf(err, "error decoding orphan of %s", from)
		}
		d.Sample = append(d.Sample, vals[0])
	}
	if err := rows.Err(); err != nil {
		return d, verifybase.ConnectionError(err, "error sampling orphans of %s on %s", from, conn.ID())
	}
	return d, nil
}

// antiJoin returns the FROM and WHERE clauses selecting rows of from whose
// non-NULL key has no match in to.
func antiJoin(dialect dbconn.Dialect, from Key, to Key) string {
	fromCol := "o." + dialect.QuoteIdent(from.Column)
	toCol := "r." + dialect.QuoteIdent(to.Column)
	var sb strings.Builder
	sb.WriteString(" FROM ")
	sb.WriteString(from.Table.SQL(dialect))
	sb.WriteString(" o LEFT JOIN ")
	sb.WriteString(to.Table.SQL(dialect))
	sb.WriteString(" r ON ")
	sb.WriteString(fromCol)
	sb.WriteString(" = ")
	sb.WriteString(toCol)
	sb.WriteString(" WHERE ")
	sb.WriteString(fromCol)
	sb.WriteString(" IS NOT NULL AND ")
	sb.WriteString(toCol)
	sb.WriteString(" IS NULL")
	return sb.String()
}

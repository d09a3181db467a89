// Package resultverify checks that one query returns the same result set on
// several sources.
package resultverify

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/genomehc/hcverify/verify/verifybase"
)

// Divergence locates the first difference found. Source, Row and Column are
// 1-indexed; Column is 0 when the sources return different numbers of rows.
type Divergence struct {
	Source   int
	SourceID dbconn.ID
	Row      int
	Column   int
	Expected string
	Actual   string
}

func (d Divergence) Violation() inconsistency.Violation {
	if d.Column == 0 {
		return inconsistency.Violation{
			Kind:    inconsistency.ResultSetDivergence,
			Locator: fmt.Sprintf("source %d (%s)", d.Source, d.SourceID),
			Detail:  fmt.Sprintf("row count differs at row %d: source 1 has %s, source %d has %s", d.Row, d.Expected, d.Source, d.Actual),
		}
	}
	return inconsistency.Violation{
		Kind:    inconsistency.ResultSetDivergence,
		Locator: fmt.Sprintf("source %d (%s)", d.Source, d.SourceID),
		Detail: fmt.Sprintf(
			"row %d, column %d: source 1 has %s, source %d has %s",
			d.Row, d.Column, d.Expected, d.Source, d.Actual,
		),
	}
}

type Result struct {
	// Rows is the number of rows returned by the first source.
	Rows       int
	Divergence *Divergence
}

// Compare runs q on every source in order and compares each result with the
// first positionally, treating NULL as equal to NULL. Results are not
// sorted, so q needs an ORDER BY for a meaningful comparison. The result of
// the first source is held in memory; the others are streamed.
//
// Comparison stops at the first divergence and later sources are never
// queried.
func Compare(
	ctx context.Context, q string, conns []dbconn.Conn, collector *inconsistency.Collector,
) (Result, error) {
	var res Result
	if len(conns) < 2 {
		return res, errors.Newf("at least 2 sources are required, got %d", len(conns))
	}
	base, err := fetchAll(ctx, conns[0], q)
	if err != nil {
		collector.Truncate()
		return res, err
	}
	res.Rows = len(base)
	for i := 1; i < len(conns); i++ {
		d, err := compareSource(ctx, q, conns[i], base)
		if err != nil {
			collector.Truncate()
			return res, err
		}
		if d != nil {
			d.Source = i + 1
			d.SourceID = conns[i].ID()
			res.Divergence = d
			collector.Abort(d.Violation())
			return res, nil
		}
	}
	return res, nil
}

func fetchAll(ctx context.Context, conn dbconn.Conn, q string) ([]rowvalue.Row, error) {
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, verifybase.ConnectionError(err, "error running query on %s", conn.ID())
	}
	defer rows.Close()
	var ret []rowvalue.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding row from %s", conn.ID())
		}
		ret = append(ret, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, verifybase.ConnectionError(err, "error running query on %s", conn.ID())
	}
	return ret, nil
}

func compareSource(
	ctx context.Context, q string, conn dbconn.Conn, base []rowvalue.Row,
) (*Divergence, error) {
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, verifybase.ConnectionError(err, "error running query on %s", conn.ID())
	}
	defer rows.Close()
	rowIdx := 0
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding row from %s", conn.ID())
		}
		if rowIdx >= len(base) {
			return &Divergence{
				Row:      rowIdx + 1,
				Expected: "no row",
				Actual:   rowvalue.Format(vals),
			}, nil
		}
		if d := compareRow(base[rowIdx], vals); d != nil {
			d.Row = rowIdx + 1
			return d, nil
		}
		rowIdx++
	}
	if err := rows.Err(); err != nil {
		return nil, verifybase.ConnectionError(err, "error running query on %s", conn.ID())
	}
	if rowIdx < len(base) {
		return &Divergence{
			Row:      rowIdx + 1,
			Expected: rowvalue.Format(base[rowIdx]),
			Actual:   "no row",
		}, nil
	}
	return nil, nil
}

func compareRow(expected, actual rowvalue.Row) *Divergence {
	n := len(expected)
	if len(actual) < n {
		n = len(actual)
	}
	for i := 0; i < n; i++ {
		if !rowvalue.Equal(expected[i], actual[i]) {
			return &Divergence{
				Column:   i + 1,
				Expected: rowvalue.FormatValue(expected[i]),
				Actual:   rowvalue.FormatValue(actual[i]),
			}
		}
	}
	if len(expected) != len(actual) {
		return &Divergence{
			Column:   n + 1,
			Expected: fmt.Sprintf("%d columns", len(expected)),
			Actual:   fmt.Sprintf("%d columns", len(actual)),
		}
	}
	return nil
}

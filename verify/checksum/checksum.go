// Package checksum computes order-independent digests of table contents.
package checksum

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/rowiterator"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/genomehc/hcverify/verify/verifybase"
)

// Digest summarises a multiset of rows. Sum adds the hash of every row with
// wrap-around, so neither row order nor fetch order affects it, and
// duplicate rows do not cancel each other out.
type Digest struct {
	Rows int64
	Sum  uint64
}

// Add folds one row into the digest.
func (d *Digest) Add(row rowvalue.Row) {
	d.addKey(rowvalue.AppendRowKey(nil, row))
}

func (d *Digest) addKey(key []byte) {
	d.Rows++
	d.Sum += xxhash.Sum64(key)
}

func (d Digest) String() string {
	return fmt.Sprintf("rows=%d sum=%016x", d.Rows, d.Sum)
}

// Compute streams every row of the given columns of table from conn and
// returns their digest.
func Compute(
	ctx context.Context, conn dbconn.Conn, table rowiterator.Table,
) (Digest, error) {
	var d Digest
	rows, err := conn.Query(ctx, rowiterator.SelectAll(conn.Dialect(), table))
	if err != nil {
		return d, verifybase.ConnectionError(err, "error computing checksum of %s on %s", table.Name, conn.ID())
	}
	defer rows.Close()
	var buf []byte
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return d, errors.Wrapf(err, "error decoding row of %s on %s", table.Name, conn.ID())
		}
		buf = rowvalue.AppendRowKey(buf[:0], vals)
		d.addKey(buf)
	}
	if err := rows.Err(); err != nil {
		return d, verifybase.ConnectionError(err, "error computing checksum of %s on %s", table.Name, conn.ID())
	}
	return d, nil
}

// Result of comparing the digests of a target and a reference table.
type Result struct {
	Target    Digest
	Reference Digest
}

func (r Result) Match() bool {
	return r.Target == r.Reference
}

// Violation returns the ChecksumMismatch violation carrying both digests.
func (r Result) Violation(locator string) inconsistency.Violation {
	return inconsistency.Violation{
		Kind:    inconsistency.ChecksumMismatch,
		Locator: locator,
		Detail:  fmt.Sprintf("target %s, reference %s", r.Target, r.Reference),
	}
}

// Compare computes the digest of the target table and then the reference
// table. Both tables must project the same columns in the same order.
func Compare(
	ctx context.Context,
	target dbconn.Conn,
	targetTable rowiterator.Table,
	reference dbconn.Conn,
	referenceTable rowiterator.Table,
) (Result, error) {
	if len(targetTable.ColumnNames) != len(referenceTable.ColumnNames) {
		return Result{}, errors.AssertionFailedf(
			"checksum column count mismatch: %d vs %d",
			len(targetTable.ColumnNames),
			len(referenceTable.ColumnNames),
		)
	}
	var res Result
	var err error
	if res.Target, err = Compute(ctx, target, targetTable); err != nil {
		return res, err
	}
	if res.Reference, err = Compute(ctx, reference, referenceTable); err != nil {
		return res, err
	}
	return res, nil
}

package rowiterator

import (
	"context"

	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/rowvalue"
)

type Iterator interface {
	Conn() dbconn.Conn
	HasNext(ctx context.Context) bool
	Error() error
	Peek(ctx context.Context) rowvalue.Row
	Next(ctx context.Context) rowvalue.Row
}

type Table struct {
	dbtable.Name
	ColumnNames []string
	// OrderBy gives a total order over the scanned rows. Paging over an
	// unordered scan may skip or repeat rows between batches.
	OrderBy []string
	// MaxRows stops the scan after this many rows. NoMaxRows scans to the
	// end of the table.
	MaxRows int64
}

// NoMaxRows lifts the MaxRows bound of a Table.
const NoMaxRows int64 = -1

// readRows drains rows into memory and closes them.
func readRows(rows dbconn.Rows, sizeHint int) ([]rowvalue.Row, error) {
	defer rows.Close()
	ret := make([]rowvalue.Row, 0, sizeHint)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		ret = append(ret, vals)
	}
	return ret, rows.Err()
}

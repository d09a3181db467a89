package rowiterator

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/rowvalue"
	"golang.org/x/time/rate"
)

// PagedIterator scans a table in pages of rowBatchSize rows using LIMIT /
// OFFSET over the table's order key. Each page is read completely and its
// cursor closed before rows are handed out, so callers may issue further
// queries on the same Conn while iterating.
type PagedIterator struct {
	conn         dbconn.Conn
	table        Table
	rowBatchSize int
	scanQuery    scanQuery
	rateLimiter  *rate.Limiter

	cache   []rowvalue.Row
	offset  int64
	emitted int64
	pages   int
	done    bool
	err     error
}

var _ Iterator = (*PagedIterator)(nil)

// NewPagedIterator returns a row iterator which pages over the given table.
// rateLimiter may be nil.
func NewPagedIterator(
	conn dbconn.Conn, table Table, rowBatchSize int, rateLimiter *rate.Limiter,
) (*PagedIterator, error) {
	if rowBatchSize <= 0 {
		return nil, errors.Newf("row batch size must be > 0, got %d", rowBatchSize)
	}
	sq, err := newScanQuery(conn.Dialect(), table)
	if err != nil {
		return nil, err
	}
	return &PagedIterator{
		conn:         conn,
		table:        table,
		rowBatchSize: rowBatchSize,
		scanQuery:    sq,
		rateLimiter:  rateLimiter,
	}, nil
}

func (it *PagedIterator) Conn() dbconn.Conn {
	return it.conn
}

func (it *PagedIterator) HasNext(ctx context.Context) bool {
	for {
		if it.err != nil {
			return false
		}
		if len(it.cache) > 0 {
			return true
		}
		if it.done {
			return false
		}
		it.nextPage(ctx)
	}
}

func (it *PagedIterator) nextPage(ctx context.Context) {
	limit := it.rowBatchSize
	if it.table.MaxRows >= 0 {
		if remaining := it.table.MaxRows - it.offset; remaining <= 0 {
			it.done = true
			return
		} else if remaining < int64(limit) {
			limit = int(remaining)
		}
	}
	if it.rateLimiter != nil {
		if err := it.rateLimiter.Wait(ctx); err != nil {
			it.err = err
			return
		}
	}
	q := it.scanQuery.generate(limit, it.offset)
	rows, err := it.conn.Query(ctx, q)
	if err != nil {
		it.err = errors.Wrapf(err, "error getting rows for table %s from %s", it.table.Name, it.conn.ID())
		return
	}
	page, err := readRows(rows, limit)
	if err != nil {
		it.err = errors.Wrapf(err, "error reading rows for table %s from %s", it.table.Name, it.conn.ID())
		return
	}
	it.pages++
	it.offset += int64(len(page))
	// A short page means the end of the table.
	if len(page) < limit {
		it.done = true
	}
	it.cache = page
}

func (it *PagedIterator) Peek(ctx context.Context) rowvalue.Row {
	if it.HasNext(ctx) {
		return it.cache[0]
	}
	return nil
}

func (it *PagedIterator) Next(ctx context.Context) rowvalue.Row {
	if it.HasNext(ctx) {
		ret := it.cache[0]
		it.cache = it.cache[1:]
		it.emitted++
		return ret
	}
	return nil
}

func (it *PagedIterator) Error() error {
	return it.err
}

// Emitted is the number of rows returned by Next so far.
func (it *PagedIterator) Emitted() int64 {
	return it.emitted
}

// Pages is the number of pages fetched so far.
func (it *PagedIterator) Pages() int {
	return it.pages
}

package rowverify

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/rowiterator"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/genomehc/hcverify/verify/verifybase"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Stats counts what happened to the target rows of one reconciliation.
type Stats struct {
	// Total is the target row count taken before paging started.
	Total      int64
	Scanned    int64
	Matched    int64
	NotFound   int64
	Duplicates int64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"target rows: %d, scanned: %d, matched: %d, not found: %d, duplicate matches: %d",
		s.Total,
		s.Scanned,
		s.Matched,
		s.NotFound,
		s.Duplicates,
	)
}

// Table pairs the target table with the reference table its rows are looked
// up in. Columns and ReferenceColumns name the same columns in the same
// order; OrderBy is a subset of Columns giving a total order on the target.
type Table struct {
	Target           dbtable.Name
	Reference        dbtable.Name
	Columns          []string
	ReferenceColumns []string
	OrderBy          []string
}

// VerifyRows pages through the target table in batches of rowBatchSize rows
// ordered by table.OrderBy and checks every row exists in the reference.
// Violations go to collector; when it stops accepting them no further
// batches are fetched.
//
// A failing query on either source aborts the scan. The returned error is
// marked as a connection error and the collector is truncated, so whatever
// was collected up to that point remains available.
func VerifyRows(
	ctx context.Context,
	target dbconn.Conn,
	reference dbconn.Conn,
	table Table,
	rowBatchSize int,
	rateLimiter *rate.Limiter,
	collector *inconsistency.Collector,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
) (Stats, error) {
	evl := &defaultRowEventListener{reporter: reporter, collector: collector, table: table}
	if len(table.Columns) != len(table.ReferenceColumns) {
		return evl.stats, errors.AssertionFailedf(
			"%d target columns but %d reference columns", len(table.Columns), len(table.ReferenceColumns),
		)
	}

	// The row count is taken once; rows beyond it are not scanned.
	var total int64
	if err := target.QueryRow(
		ctx,
		rowiterator.CountRows(target.Dialect(), rowiterator.Table{Name: table.Target}),
	).Scan(&total); err != nil {
		collector.Truncate()
		return evl.stats, verifybase.ConnectionError(err, "error counting rows of %s on %s", table.Target, target.ID())
	}
	evl.stats.Total = total
	logger.Debug().
		Str("table_name", table.Target.String()).
		Int64("rows", total).
		Msgf("starting row verification")

	it, err := rowiterator.NewPagedIterator(
		target,
		rowiterator.Table{
			Name:        table.Target,
			ColumnNames: table.Columns,
			OrderBy:     table.OrderBy,
			MaxRows:     total,
		},
		rowBatchSize,
		rateLimiter,
	)
	if err != nil {
		return evl.stats, errors.Wrapf(err, "error initializing row iterator on %s", target.ID())
	}
	if err := verifyRows(ctx, it, reference, table, evl); err != nil {
		collector.Truncate()
		return evl.stats, err
	}
	verb := "finished"
	if collector.Stopped() {
		verb = "stopped"
	}
	reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("%s row verification on %s: %s", verb, table.Target, evl.stats.String()),
	})
	return evl.stats, nil
}

func verifyRows(
	ctx context.Context,
	it rowiterator.Iterator,
	reference dbconn.Conn,
	table Table,
	evl RowEventListener,
) error {
	dialect := reference.Dialect()
	for it.HasNext(ctx) {
		evl.OnRowScan()
		row := it.Next(ctx)

		lookup, err := BuildLookup(dialect, table.Reference, table.ReferenceColumns, row)
		if err != nil {
			return err
		}
		var matches int64
		if err := reference.QueryRow(ctx, lookup.SQL, lookup.Args...).Scan(&matches); err != nil {
			return verifybase.ConnectionError(
				err, "error looking up %s in %s on %s", rowvalue.Format(row), table.Reference, reference.ID(),
			)
		}
		switch {
		case matches == 1:
			evl.OnMatch()
		case matches == 0:
			if !evl.OnRowNotFound(row) {
				return nil
			}
		default:
			evl.OnDuplicateMatch(row, matches)
		}
	}
	if err := it.Error(); err != nil {
		return verifybase.ConnectionError(err, "error scanning %s on %s", table.Target, it.Conn().ID())
	}
	return nil
}

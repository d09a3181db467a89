package rowiterator

import (
	"context"
	"fmt"
	"testing"

	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/genomehc/hcverify/testutils"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestPagedIterator(t *testing.T) {
	ctx := context.Background()
	conn := testutils.NewSQLiteConn(t, "src")
	testutils.MustExec(t, "CREATE TABLE exon (exon_id INTEGER PRIMARY KEY, stable_id TEXT)", conn)
	for i := 5; i >= 1; i-- {
		testutils.MustExec(t, fmt.Sprintf("INSERT INTO exon VALUES (%d, 'ENSE%d')", i, i), conn)
	}
	table := Table{
		Name:        dbtable.Name{Table: "exon"},
		ColumnNames: []string{"exon_id", "stable_id"},
		OrderBy:     []string{"exon_id"},
	}

	for _, tc := range []struct {
		desc          string
		batchSize     int
		maxRows       int64
		expectedIDs   []int64
		expectedPages int
	}{
		{desc: "batch divides rows", batchSize: 5, maxRows: NoMaxRows, expectedIDs: []int64{1, 2, 3, 4, 5}, expectedPages: 2},
		{desc: "short last page", batchSize: 2, maxRows: NoMaxRows, expectedIDs: []int64{1, 2, 3, 4, 5}, expectedPages: 3},
		{desc: "single row pages", batchSize: 1, maxRows: NoMaxRows, expectedIDs: []int64{1, 2, 3, 4, 5}, expectedPages: 6},
		{desc: "max rows", batchSize: 2, maxRows: 3, expectedIDs: []int64{1, 2, 3}, expectedPages: 2},
		{desc: "max rows of a table empty when counted", batchSize: 2, maxRows: 0, expectedPages: 0},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			tbl := table
			tbl.MaxRows = tc.maxRows
			counting := testutils.NewCountingConn(conn)
			it, err := NewPagedIterator(counting, tbl, tc.batchSize, rate.NewLimiter(rate.Inf, 1))
			require.NoError(t, err)

			var ids []int64
			for it.HasNext(ctx) {
				require.NotNil(t, it.Peek(ctx))
				row := it.Next(ctx)
				id, err := rowvalue.AsInt64(row[0])
				require.NoError(t, err)
				require.Equal(t, fmt.Sprintf("ENSE%d", id), rowvalue.AsString(row[1]))
				ids = append(ids, id)
			}
			require.NoError(t, it.Error())
			require.Equal(t, tc.expectedIDs, ids)
			require.Equal(t, tc.expectedPages, it.Pages())
			require.Equal(t, tc.expectedPages, len(counting.Queries()))
			require.Equal(t, int64(len(tc.expectedIDs)), it.Emitted())
			require.Nil(t, it.Next(ctx))
		})
	}
}

func TestPagedIteratorQueryError(t *testing.T) {
	ctx := context.Background()
	conn := testutils.NewSQLiteConn(t, "src")
	it, err := NewPagedIterator(conn, Table{
		Name:        dbtable.Name{Table: "missing"},
		ColumnNames: []string{"id"},
		OrderBy:     []string{"id"},
		MaxRows:     NoMaxRows,
	}, 10, nil)
	require.NoError(t, err)
	require.False(t, it.HasNext(ctx))
	require.Error(t, it.Error())
	require.Contains(t, it.Error().Error(), "error getting rows for table missing from src")
}

func TestPagedIteratorBatchSize(t *testing.T) {
	conn := testutils.NewSQLiteConn(t, "src")
	_, err := NewPagedIterator(conn, Table{
		Name:        dbtable.Name{Table: "exon"},
		ColumnNames: []string{"exon_id"},
		OrderBy:     []string{"exon_id"},
	}, 0, nil)
	require.Error(t, err)
}

package keyverify

import (
	"context"
	"testing"

	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/testutils"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/stretchr/testify/require"
)

func geneSeqRegion(oneWay bool) Request {
	return Request{
		From:       Key{Table: dbtable.Name{Table: "gene"}, Column: "seq_region_id"},
		To:         Key{Table: dbtable.Name{Table: "seq_region"}, Column: "seq_region_id"},
		OneWayOnly: oneWay,
	}
}

func setupOrphans(t *testing.T) *dbconn.SQLiteConn {
	conn := testutils.NewSQLiteConn(t, "core")
	testutils.MustExec(t, "CREATE TABLE seq_region (seq_region_id INTEGER PRIMARY KEY, name TEXT)", conn)
	testutils.MustExec(t, "CREATE TABLE gene (gene_id INTEGER PRIMARY KEY, seq_region_id INTEGER)", conn)
	// seq_region 4 and 5 are never referenced.
	testutils.MustExec(t, "INSERT INTO seq_region VALUES (1, 'chr1'), (2, 'chr2'), (3, 'chr3'), (4, 'chr4'), (5, 'chr5')", conn)
	// 10, 11 and 12 dangle. NULL is not an orphan.
	testutils.MustExec(t, `INSERT INTO gene VALUES
(1, 1), (2, 2), (3, 3), (4, 10), (5, 11), (6, 12), (7, NULL)`, conn)
	return conn
}

func TestVerify(t *testing.T) {
	for _, tc := range []struct {
		desc            string
		oneWay          bool
		expectedOrphans int64
		expectedSamples [][]any
	}{
		{
			desc:            "bidirectional",
			expectedOrphans: 5,
			expectedSamples: [][]any{{int64(10), int64(11), int64(12)}, {int64(4), int64(5)}},
		},
		{
			desc:            "one way",
			oneWay:          true,
			expectedOrphans: 3,
			expectedSamples: [][]any{{int64(10), int64(11), int64(12)}},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			conn := setupOrphans(t)
			c := inconsistency.NewCollector(nil, inconsistency.NoLimit, "gene")
			res, err := Verify(context.Background(), conn, geneSeqRegion(tc.oneWay), DefaultSampleSize, c)
			require.NoError(t, err)
			require.Equal(t, tc.expectedOrphans, res.Orphans)
			require.Len(t, res.Directions, len(tc.expectedSamples))
			for i, d := range res.Directions {
				require.Equal(t, tc.expectedSamples[i], d.Sample)
			}
			require.Equal(t, int(tc.expectedOrphans), c.Result().Count(inconsistency.SetMismatch))
			require.False(t, c.Result().Passed)
		})
	}
}

func TestVerifySampleSize(t *testing.T) {
	conn := setupOrphans(t)
	c := inconsistency.NewCollector(nil, inconsistency.NoLimit, "gene")
	res, err := Verify(context.Background(), conn, geneSeqRegion(true), 2, c)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Orphans)
	require.Equal(t, []any{int64(10), int64(11)}, res.Directions[0].Sample)
	v := c.Result().Violations[0]
	require.Equal(t, "gene.seq_region_id=10", v.Locator)
	require.Equal(t, "no matching seq_region.seq_region_id (3 orphans in total)", v.Detail)
}

func TestVerifyZeroSampleSize(t *testing.T) {
	conn := setupOrphans(t)
	c := inconsistency.NewCollector(nil, inconsistency.NoLimit, "gene")
	res, err := Verify(context.Background(), conn, geneSeqRegion(false), 0, c)
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Orphans)
	for _, d := range res.Directions {
		require.Empty(t, d.Sample)
	}
	r := c.Result()
	require.False(t, r.Passed)
	require.Equal(t, []inconsistency.Violation{
		{
			Kind:    inconsistency.SetMismatch,
			Locator: "gene.seq_region_id",
			Detail:  "3 orphans with no matching seq_region.seq_region_id",
		},
		{
			Kind:    inconsistency.SetMismatch,
			Locator: "seq_region.seq_region_id",
			Detail:  "2 orphans with no matching gene.seq_region_id",
		},
	}, r.Violations)
}

func TestVerifyEmptyTable(t *testing.T) {
	conn := testutils.NewSQLiteConn(t, "core")
	testutils.MustExec(t, "CREATE TABLE seq_region (seq_region_id INTEGER PRIMARY KEY)", conn)
	testutils.MustExec(t, "CREATE TABLE gene (gene_id INTEGER PRIMARY KEY, seq_region_id INTEGER)", conn)
	testutils.MustExec(t, "INSERT INTO gene VALUES (1, 1), (2, 2)", conn)

	c := inconsistency.NewCollector(nil, inconsistency.NoLimit, "gene")
	res, err := Verify(context.Background(), conn, geneSeqRegion(false), DefaultSampleSize, c)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Orphans)
	require.Equal(t, "seq_region", res.EmptyTable)
	require.True(t, c.Result().Passed)
}

func TestVerifyMissingColumn(t *testing.T) {
	conn := setupOrphans(t)
	req := geneSeqRegion(false)
	req.To.Column = "region_id"
	c := inconsistency.NewCollector(nil, inconsistency.NoLimit, "gene")
	_, err := Verify(context.Background(), conn, req, DefaultSampleSize, c)
	require.NoError(t, err)
	require.Equal(t, 1, c.Result().Count(inconsistency.SchemaIncompatible))

	req = geneSeqRegion(false)
	req.To.Table = dbtable.Name{Table: "missing"}
	_, err = Verify(context.Background(), conn, req, DefaultSampleSize, inconsistency.NewCollector(nil, inconsistency.NoLimit, "gene"))
	require.ErrorIs(t, err, dbtable.ErrTableNotFound)
}

func TestAntiJoin(t *testing.T) {
	from := Key{Table: dbtable.Name{Schema: "core", Table: "gene"}, Column: "seq_region_id"}
	to := Key{Table: dbtable.Name{Schema: "core", Table: "seq_region"}, Column: "seq_region_id"}
	require.Equal(
		t,
		` FROM "core"."gene" o LEFT JOIN "core"."seq_region" r ON o."seq_region_id" = r."seq_region_id" WHERE o."seq_region_id" IS NOT NULL AND r."seq_region_id" IS NULL`,
		antiJoin(dbconn.DialectPostgres, from, to),
	)
	require.Equal(
		t,
		" FROM `core`.`gene` o LEFT JOIN `core`.`seq_region` r ON o.`seq_region_id` = r.`seq_region_id` WHERE o.`seq_region_id` IS NOT NULL AND r.`seq_region_id` IS NULL",
		antiJoin(dbconn.DialectMySQL, from, to),
	)
}

func TestParseKey(t *testing.T) {
	for _, tc := range []struct {
		s           string
		expected    Key
		expectedErr string
	}{
		{s: "gene.seq_region_id", expected: Key{Table: dbtable.Name{Table: "gene"}, Column: "seq_region_id"}},
		{s: "core.gene.gene_id", expected: Key{Table: dbtable.Name{Schema: "core", Table: "gene"}, Column: "gene_id"}},
		{s: "gene_id", expectedErr: `key "gene_id" must be table.column`},
		{s: "gene.", expectedErr: `key "gene." must be table.column`},
		{s: ".gene_id", expectedErr: `key ".gene_id" must be table.column`},
	} {
		t.Run(tc.s, func(t *testing.T) {
			k, err := ParseKey(tc.s)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, k)
		})
	}
}

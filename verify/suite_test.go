package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/testutils"
	"github.com/genomehc/hcverify/verify/keyverify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRunSuite(t *testing.T) {
	ctx := context.Background()
	core := testutils.NewSQLiteConn(t, "core")
	ref := testutils.NewSQLiteConn(t, "ref")
	testutils.MustExec(t, "CREATE TABLE gene (gene_id INTEGER PRIMARY KEY, seq_region_id INTEGER, biotype TEXT)", core, ref)
	testutils.MustExec(t, "CREATE TABLE seq_region (seq_region_id INTEGER PRIMARY KEY, name TEXT)", core, ref)
	testutils.MustExec(t, "INSERT INTO seq_region VALUES (1, 'chr1'), (2, 'chr2')", core, ref)
	testutils.MustExec(t, "INSERT INTO gene VALUES (1, 1, 'protein_coding'), (2, 2, 'lncRNA')", core, ref)
	testutils.MustExec(t, "INSERT INTO gene VALUES (3, 3, 'miRNA')", core)

	conns := map[string]dbconn.Conn{"core": core, "ref": ref}
	gene := dbtable.Name{Table: "gene"}
	checks := []Check{
		{
			Name: "gene rows", Kind: CheckTables,
			Target: "core", Reference: "ref", TargetTable: gene, ReferenceTable: gene,
			BatchSize: 1, MaxViolations: 10,
		},
		{
			Name: "gene checksum", Kind: CheckTables,
			Target: "ref", Reference: "ref", TargetTable: gene, ReferenceTable: gene,
			Strategy: StrategyChecksum, BatchSize: 1,
		},
		{
			Name: "gene seq_region", Kind: CheckKeys, Target: "core",
			Keys: keyverify.Request{
				From:       keyverify.Key{Table: gene, Column: "seq_region_id"},
				To:         keyverify.Key{Table: dbtable.Name{Table: "seq_region"}, Column: "seq_region_id"},
				OneWayOnly: true,
			},
		},
		{
			Name: "seq_region names", Kind: CheckSources,
			Query:   "SELECT name FROM seq_region ORDER BY seq_region_id",
			Sources: []string{"core", "ref"},
		},
		{
			Name: "missing table", Kind: CheckTables,
			Target: "core", Reference: "ref", TargetTable: dbtable.Name{Table: "exon"}, ReferenceTable: gene,
			BatchSize: 1,
		},
	}

	for _, concurrency := range []int{1, 3} {
		var sb strings.Builder
		results, err := RunSuite(ctx, checks, conns, &textReporter{sb: &sb}, zerolog.Nop(), WithConcurrency(concurrency))
		require.NoError(t, err)
		require.Len(t, results, len(checks))

		var names []string
		for _, r := range results {
			names = append(names, r.Name)
		}
		require.Equal(t, []string{"gene rows", "gene checksum", "gene seq_region", "seq_region names", "missing table"}, names)

		require.Equal(t, "FAIL (1 violation)", results[0].Verdict())
		require.True(t, results[1].Passed())
		require.False(t, results[2].Passed())
		require.Equal(t, int64(1), results[2].Orphans)
		require.True(t, results[3].Passed())
		require.False(t, results[4].Passed())
		require.Error(t, results[4].Err)
		require.True(t, strings.HasPrefix(results[4].Verdict(), "ERROR ("))
		require.Contains(t, sb.String(), "status: check gene rows: FAIL (1 violation)")
	}
}

func TestRunSuiteUnknownSource(t *testing.T) {
	_, err := RunSuite(
		context.Background(),
		[]Check{{Name: "x", Kind: CheckTables, Target: "core", Reference: "nope"}},
		map[string]dbconn.Conn{"core": dbconn.MakeFakeConn("core")},
		&textReporter{sb: &strings.Builder{}},
		zerolog.Nop(),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), `check x refers to unknown source "nope"`)
}

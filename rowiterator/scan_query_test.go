package rowiterator

import (
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/testutils"
	"github.com/stretchr/testify/require"
)

func TestScanQuery(t *testing.T) {
	datadriven.Walk(t, "testdata/scanquery", func(t *testing.T, path string) {
		var table Table
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			genPage := func(dialect dbconn.Dialect) string {
				var limit int
				var offset int
				d.ScanArgs(t, "limit", &limit)
				d.ScanArgs(t, "offset", &offset)
				sq, err := newScanQuery(dialect, table)
				require.NoError(t, err)
				return sq.generate(limit, int64(offset))
			}
			switch d.Cmd {
			case "table":
				var name string
				d.ScanArgs(t, "name", &name)
				table = Table{Name: dbtable.ParseName(name)}
				table.ColumnNames = testutils.ArgVals(t, d, "cols")
				table.OrderBy = testutils.ArgVals(t, d, "order")
				return ""
			case "pg":
				return genPage(dbconn.DialectPostgres)
			case "mysql":
				return genPage(dbconn.DialectMySQL)
			case "sqlite":
				return genPage(dbconn.DialectSQLite)
			case "count":
				return CountRows(dbconn.DialectPostgres, table)
			case "select_all":
				return SelectAll(dbconn.DialectPostgres, table)
			}
			t.Errorf("unknown command %s", d.Cmd)
			return ""
		})
	})
}

func TestScanQueryRequiresOrderKey(t *testing.T) {
	_, err := newScanQuery(dbconn.DialectPostgres, Table{
		Name:        dbtable.Name{Table: "gene"},
		ColumnNames: []string{"gene_id"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires an order key")

	_, err = newScanQuery(dbconn.DialectPostgres, Table{Name: dbtable.Name{Table: "gene"}})
	require.Error(t, err)
}

package testutils

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// PGConnStr returns the PostgreSQL instance to run integration tests
// against, and whether one was configured.
func PGConnStr() (string, bool) {
	return os.LookupEnv("POSTGRES_URL")
}

func CRDBConnStr() (string, bool) {
	return os.LookupEnv("COCKROACH_URL")
}

func MySQLConnStr() (string, bool) {
	return os.LookupEnv("MYSQL_URL")
}

// NewSQLiteConn returns a connection to a fresh in-memory database which is
// closed when the test finishes. Clones share the same database.
func NewSQLiteConn(t testing.TB, id dbconn.ID) *dbconn.SQLiteConn {
	ctx := context.Background()
	connStr := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := dbconn.ConnectSQLite(ctx, id, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(ctx) })
	return conn
}

// ExecSQL runs statements which return no rows against conn.
func ExecSQL(ctx context.Context, conn dbconn.Conn, q string) (string, error) {
	switch conn := conn.(type) {
	case *dbconn.PGConn:
		tag, err := conn.PGX().Exec(ctx, q)
		if err != nil {
			return "", err
		}
		return tag.String(), nil
	case *dbconn.MySQLConn:
		res, err := conn.DB().ExecContext(ctx, q)
		if err != nil {
			return "", err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d rows affected", n), nil
	case *dbconn.SQLiteConn:
		res, err := conn.Exec(ctx, q)
		if err != nil {
			return "", err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d rows affected", n), nil
	}
	return "", errors.AssertionFailedf("unhandled Conn type: %T", conn)
}

// MustExec runs q against every conn, failing the test on error.
func MustExec(t testing.TB, q string, conns ...dbconn.Conn) {
	for _, conn := range conns {
		_, err := ExecSQL(context.Background(), conn, q)
		require.NoError(t, err, "executing on %s: %s", conn.ID(), q)
	}
}

// selectConns resolves the arguments of a datadriven command to the named
// connections. "all" selects every connection.
func selectConns(t *testing.T, d *datadriven.TestData, conns map[string]dbconn.Conn) []dbconn.Conn {
	var names []string
	for _, arg := range d.CmdArgs {
		if arg.Key == "all" {
			names = names[:0]
			for name := range conns {
				names = append(names, name)
			}
			sort.Strings(names)
			break
		}
		if _, ok := conns[arg.Key]; ok {
			names = append(names, arg.Key)
		}
	}
	require.NotEmpty(t, names, "destination sql must be defined")
	ret := make([]dbconn.Conn, len(names))
	for i, name := range names {
		ret[i] = conns[name]
	}
	return ret
}

func ExecConnCommand(t *testing.T, d *datadriven.TestData, conns map[string]dbconn.Conn) string {
	ctx := context.Background()
	var sb strings.Builder
	for _, conn := range selectConns(t, d, conns) {
		tag, err := ExecSQL(ctx, conn, d.Input)
		if err != nil {
			sb.WriteString(fmt.Sprintf("[%s] error: %s\n", conn.ID(), err.Error()))
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", conn.ID(), tag))
	}
	return sb.String()
}

func QueryConnCommand(t *testing.T, d *datadriven.TestData, conns map[string]dbconn.Conn) string {
	ctx := context.Background()
	var sb strings.Builder
	for _, conn := range selectConns(t, d, conns) {
		rows, err := conn.Query(ctx, d.Input)
		if err != nil {
			sb.WriteString(fmt.Sprintf("[%s] error: %s\n", conn.ID(), err.Error()))
			continue
		}
		sb.WriteString(fmt.Sprintf("[%s]:\n", conn.ID()))
		for rows.Next() {
			vals, err := rows.Values()
			require.NoError(t, err)
			sb.WriteString(rowvalue.Format(vals))
			sb.WriteString("\n")
		}
		rows.Close()
		if rows.Err() != nil {
			sb.WriteString(fmt.Sprintf("[%s] error: %s\n", conn.ID(), rows.Err()))
		}
	}
	return sb.String()
}

// ArgVals returns every value of the key=(a,b,c) argument of a datadriven
// command.
func ArgVals(t *testing.T, d *datadriven.TestData, key string) []string {
	for _, arg := range d.CmdArgs {
		if arg.Key == key {
			return append([]string(nil), arg.Vals...)
		}
	}
	t.Fatalf("%s: missing argument %s", d.Pos, key)
	return nil
}

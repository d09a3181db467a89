package dbtable

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/rowvalue"
	"github.com/lib/pq/oid"
)

// ErrTableNotFound is returned by Describe when the table does not exist.
var ErrTableNotFound = errors.New("table not found")

// Describe introspects the ordered columns and primary key of a table.
func Describe(ctx context.Context, conn dbconn.Conn, name Name) (Descriptor, error) {
	ret := Descriptor{Name: name}
	var err error
	switch d := conn.Dialect(); d {
	case dbconn.DialectPostgres, dbconn.DialectCockroach:
		ret.Columns, err = pgColumns(ctx, conn, name)
		if err == nil && len(ret.Columns) > 0 {
			ret.PrimaryKey, err = pgPrimaryKey(ctx, conn, name)
		}
	case dbconn.DialectMySQL:
		ret.Columns, err = mysqlColumns(ctx, conn, name)
		if err == nil && len(ret.Columns) > 0 {
			ret.PrimaryKey, err = mysqlPrimaryKey(ctx, conn, name)
		}
	case dbconn.DialectSQLite:
		ret.Columns, ret.PrimaryKey, err = sqliteColumns(ctx, conn, name)
	default:
		return ret, errors.Newf("dialect %s not supported", d)
	}
	if err != nil {
		return ret, errors.Wrapf(err, "error describing %s on %s", name, conn.ID())
	}
	if len(ret.Columns) == 0 {
		return ret, errors.Wrapf(ErrTableNotFound, "%s on %s", name, conn.ID())
	}
	return ret, nil
}

func collect(
	ctx context.Context, conn dbconn.Conn, fn func(vals []any) error, q string, args ...any,
) error {
	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return errors.Wrap(err, "error decoding catalog row")
		}
		if err := fn(vals); err != nil {
			return err
		}
	}
	return rows.Err()
}

func pgColumns(ctx context.Context, conn dbconn.Conn, name Name) ([]Column, error) {
	var ret []Column
	// to_regclass returns NULL for missing tables instead of erroring.
	err := collect(
		ctx,
		conn,
		func(vals []any) error {
			typOID, err := rowvalue.AsInt64(vals[1])
			if err != nil {
				return err
			}
			ret = append(ret, Column{
				Name:    rowvalue.AsString(vals[0]),
				OID:     oid.Oid(typOID),
				NotNull: vals[2] == true,
			})
			return nil
		},
		`SELECT attname::TEXT, atttypid::INT8, attnotnull FROM pg_attribute
WHERE attrelid = to_regclass($1) AND attnum > 0 AND NOT attisdropped
ORDER BY attnum`,
		name.SQL(conn.Dialect()),
	)
	return ret, err
}

func pgPrimaryKey(ctx context.Context, conn dbconn.Conn, name Name) ([]string, error) {
	var ret []string
	err := collect(
		ctx,
		conn,
		func(vals []any) error {
			ret = append(ret, rowvalue.AsString(vals[0]))
			return nil
		},
		`SELECT a.attname::TEXT
FROM pg_index ix
JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = ANY(ix.indkey)
WHERE ix.indrelid = to_regclass($1) AND ix.indisprimary
ORDER BY array_position(ix.indkey::INT2[], a.attnum)`,
		name.SQL(conn.Dialect()),
	)
	return ret, err
}

func mysqlSchemaArgs(name Name) (string, []any) {
	if name.Schema != "" {
		return "table_schema = ?", []any{name.Schema, name.Table}
	}
	return "table_schema = database()", []any{name.Table}
}

func mysqlColumns(ctx context.Context, conn dbconn.Conn, name Name) ([]Column, error) {
	var ret []Column
	schemaClause, args := mysqlSchemaArgs(name)
	err := collect(
		ctx,
		conn,
		func(vals []any) error {
			ret = append(ret, Column{
				Name:    strings.ToLower(rowvalue.AsString(vals[0])),
				OID:     mysqlDataTypeToOID(rowvalue.AsString(vals[1]), rowvalue.AsString(vals[2])),
				NotNull: rowvalue.AsString(vals[3]) == "NO",
			})
			return nil
		},
		`SELECT column_name, data_type, column_type, is_nullable
FROM information_schema.columns
WHERE `+schemaClause+` AND table_name = ?
ORDER BY ordinal_position`,
		args...,
	)
	return ret, err
}

func mysqlPrimaryKey(ctx context.Context, conn dbconn.Conn, name Name) ([]string, error) {
	var ret []string
	schemaClause, args := mysqlSchemaArgs(name)
	err := collect(
		ctx,
		conn,
		func(vals []any) error {
			ret = append(ret, strings.ToLower(rowvalue.AsString(vals[0])))
			return nil
		},
		`SELECT k.column_name
FROM information_schema.table_constraints t
JOIN information_schema.key_column_usage k
USING(constraint_name,table_schema,table_name)
WHERE t.constraint_type = 'PRIMARY KEY'
  AND t.`+schemaClause+`
  AND t.table_name = ?
ORDER BY k.ordinal_position`,
		args...,
	)
	return ret, err
}

func sqliteColumns(ctx context.Context, conn dbconn.Conn, name Name) ([]Column, []string, error) {
	var cols []Column
	var pkPositions []int64
	q := "PRAGMA table_info(" + conn.Dialect().QuoteIdent(name.Table) + ")"
	if name.Schema != "" {
		q = "PRAGMA " + conn.Dialect().QuoteIdent(name.Schema) + ".table_info(" + conn.Dialect().QuoteIdent(name.Table) + ")"
	}
	err := collect(
		ctx,
		conn,
		// cid, name, type, notnull, dflt_value, pk
		func(vals []any) error {
			notNull, err := rowvalue.AsInt64(vals[3])
			if err != nil {
				return err
			}
			pk, err := rowvalue.AsInt64(vals[5])
			if err != nil {
				return err
			}
			cols = append(cols, Column{
				Name:    rowvalue.AsString(vals[1]),
				OID:     sqliteTypeToOID(rowvalue.AsString(vals[2])),
				NotNull: notNull != 0 || pk > 0,
			})
			pkPositions = append(pkPositions, pk)
			return nil
		},
		q,
	)
	if err != nil {
		return nil, nil, err
	}
	// pk holds the 1-indexed position of the column within the primary key.
	var pkCols []string
	for pos := int64(1); ; pos++ {
		found := false
		for i, p := range pkPositions {
			if p == pos {
				pkCols = append(pkCols, cols[i].Name)
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return cols, pkCols, nil
}

package dbtable

import (
	"strings"

	"github.com/lib/pq/oid"
)

// mysqlDataTypeToOID maps information_schema.columns data types onto the
// closest PostgreSQL type OID so columns from all dialects share one type
// vocabulary.
func mysqlDataTypeToOID(dataType string, columnType string) oid.Oid {
	switch strings.ToLower(dataType) {
	case "tinyint":
		if strings.HasPrefix(strings.ToLower(columnType), "tinyint(1)") {
			return oid.T_bool
		}
		return oid.T_int2
	case "smallint", "year":
		return oid.T_int2
	case "mediumint", "int", "integer":
		return oid.T_int4
	case "bigint":
		return oid.T_int8
	case "decimal", "numeric":
		return oid.T_numeric
	case "float":
		return oid.T_float4
	case "double", "real":
		return oid.T_float8
	case "char":
		return oid.T_bpchar
	case "varchar":
		return oid.T_varchar
	case "tinytext", "text", "mediumtext", "longtext", "enum", "set":
		return oid.T_text
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob", "bit":
		return oid.T_bytea
	case "date":
		return oid.T_date
	case "time":
		return oid.T_time
	case "datetime", "timestamp":
		return oid.T_timestamp
	case "json":
		return oid.T_jsonb
	}
	return oid.T_unknown
}

// sqliteTypeToOID follows SQLite's column affinity rules.
func sqliteTypeToOID(declType string) oid.Oid {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "INT"):
		return oid.T_int8
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return oid.T_text
	case t == "", strings.Contains(t, "BLOB"):
		return oid.T_bytea
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return oid.T_float8
	}
	return oid.T_numeric
}

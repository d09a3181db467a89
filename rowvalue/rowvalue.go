// Package rowvalue holds the driver-independent representation of a row: an
// ordered slice of nullable values, nil standing for SQL NULL.
package rowvalue

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Row is a tuple of column values in descriptor order.
type Row []any

// Canonical renders a non-NULL value in a stable textual form, so that the
// same logical value fetched through different drivers compares equal.
func Canonical(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		return canonicalNumeric(v)
	case *apd.Decimal:
		return v.Text('f')
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func canonicalNumeric(n pgtype.Numeric) string {
	switch {
	case !n.Valid:
		return "NULL"
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	}
	coeff := n.Int
	if coeff == nil {
		coeff = big.NewInt(0)
	}
	d := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(coeff), n.Exp)
	return d.Text('f')
}

// Equal compares two values column-wise. Unlike SQL "=", NULL equals NULL;
// this mirrors the IS NULL substitution used for lookups.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Canonical(a) == Canonical(b)
}

// AppendKey appends an unambiguous encoding of v to buf. NULL and the empty
// string encode differently, as do adjacent values split at different points.
func AppendKey(buf []byte, v any) []byte {
	if v == nil {
		return append(buf, 'N')
	}
	s := Canonical(v)
	buf = append(buf, 'V')
	buf = strconv.AppendInt(buf, int64(len(s)), 10)
	buf = append(buf, ':')
	return append(buf, s...)
}

// AppendRowKey appends the encoding of every value in row.
func AppendRowKey(buf []byte, row Row) []byte {
	for _, v := range row {
		buf = AppendKey(buf, v)
	}
	return buf
}

// Format renders row for reports, e.g. (2, "b", NULL).
func Format(row Row) string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, v := range row {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatValue(v))
	}
	sb.WriteString(")")
	return sb.String()
}

// FormatValue renders a single value for reports; strings are quoted.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(v)
	case []byte:
		return strconv.Quote(string(v))
	default:
		return Canonical(v)
	}
}

// AsString converts a catalog value to a string.
func AsString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return Canonical(v)
	}
}

// AsInt64 converts a catalog value (counts, flags, ordinals) to an int64.
func AsInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, errors.Newf("cannot convert %T to an integer", v)
}

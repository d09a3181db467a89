package dbtable

import (
	"fmt"
	"strings"

	"github.com/genomehc/hcverify/dbconn"
	"github.com/lib/pq/oid"
)

type Name struct {
	Schema string
	Table  string
}

// ParseName splits an optionally schema-qualified table name.
func ParseName(s string) Name {
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return Name{Schema: s[:idx], Table: s[idx+1:]}
	}
	return Name{Table: s}
}

func (n Name) String() string {
	if n.Schema == "" {
		return n.Table
	}
	return fmt.Sprintf("%s.%s", n.Schema, n.Table)
}

// SQL renders the name quoted for the given dialect.
func (n Name) SQL(d dbconn.Dialect) string {
	if n.Schema == "" {
		return d.QuoteIdent(n.Table)
	}
	return d.QuoteIdent(n.Schema) + "." + d.QuoteIdent(n.Table)
}

func (n Name) Compare(o Name) int {
	if c := strings.Compare(strings.ToLower(n.Schema), strings.ToLower(o.Schema)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(n.Table), strings.ToLower(o.Table))
}

func (n Name) Less(o Name) bool {
	return n.Compare(o) < 0
}

type Column struct {
	Name    string
	OID     oid.Oid
	NotNull bool
}

// TypeName returns a human-readable type name for the column.
func (c Column) TypeName() string {
	if n, ok := oid.TypeName[c.OID]; ok {
		return strings.ToLower(n)
	}
	return fmt.Sprintf("oid:%d", c.OID)
}

// Descriptor describes a table as introspected from one source. It is built
// once per comparison and not modified afterwards.
type Descriptor struct {
	Name       Name
	Columns    []Column
	PrimaryKey []string
}

func (d Descriptor) ColumnNames() []string {
	ret := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		ret[i] = c.Name
	}
	return ret
}

// OrderKey returns the columns which give a deterministic order over the
// given projection: the primary key if it is fully projected, otherwise every
// projected column.
func (d Descriptor) OrderKey(projected []string) []string {
	if len(d.PrimaryKey) > 0 {
		have := make(map[string]struct{}, len(projected))
		for _, c := range projected {
			have[c] = struct{}{}
		}
		ok := true
		for _, pk := range d.PrimaryKey {
			if _, found := have[pk]; !found {
				ok = false
				break
			}
		}
		if ok {
			return d.PrimaryKey
		}
	}
	return projected
}

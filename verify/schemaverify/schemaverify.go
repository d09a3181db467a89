package schemaverify

import (
	"fmt"
	"strings"

	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/verify/inconsistency"
)

// Result of checking that a reference table can answer lookups for every
// column of a target table.
type Result struct {
	Target    dbtable.Name
	Reference dbtable.Name

	// Compatible is true if every target column exists in the reference.
	Compatible bool
	// Missing lists target columns absent from the reference.
	Missing []string
	// Extra lists reference-only columns. They are permitted and ignored.
	Extra []string

	// Columns are the target columns in target order, and ReferenceColumns
	// the same columns as spelled by the reference.
	Columns          []string
	ReferenceColumns []string

	// Notes describe definition differences on shared columns, which do not
	// affect compatibility.
	Notes []string
}

// Check compares column sets by name, ignoring case since some dialects fold
// identifiers.
func Check(target, reference dbtable.Descriptor) Result {
	res := Result{
		Target:    target.Name,
		Reference: reference.Name,
	}
	refCols := make(map[string]dbtable.Column, len(reference.Columns))
	for _, c := range reference.Columns {
		refCols[strings.ToLower(c.Name)] = c
	}
	seen := make(map[string]struct{}, len(target.Columns))
	for _, c := range target.Columns {
		key := strings.ToLower(c.Name)
		seen[key] = struct{}{}
		refCol, ok := refCols[key]
		if !ok {
			res.Missing = append(res.Missing, c.Name)
			continue
		}
		res.Columns = append(res.Columns, c.Name)
		res.ReferenceColumns = append(res.ReferenceColumns, refCol.Name)
		if c.OID != refCol.OID {
			res.Notes = append(
				res.Notes,
				fmt.Sprintf("column %s type mismatch: %s vs %s", c.Name, c.TypeName(), refCol.TypeName()),
			)
		}
		if c.NotNull != refCol.NotNull {
			res.Notes = append(
				res.Notes,
				fmt.Sprintf("column %s NOT NULL mismatch: %t vs %t", c.Name, c.NotNull, refCol.NotNull),
			)
		}
	}
	for _, c := range reference.Columns {
		if _, ok := seen[strings.ToLower(c.Name)]; !ok {
			res.Extra = append(res.Extra, c.Name)
		}
	}
	res.Compatible = len(res.Missing) == 0
	return res
}

// Violation returns the SchemaIncompatible violation for an incompatible
// result.
func (r Result) Violation() inconsistency.Violation {
	return inconsistency.Violation{
		Kind:    inconsistency.SchemaIncompatible,
		Locator: r.Target.String(),
		Detail: fmt.Sprintf(
			"reference table %s is missing columns: %s",
			r.Reference,
			strings.Join(r.Missing, ", "),
		),
	}
}

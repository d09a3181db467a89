package schemaverify

import (
	"testing"

	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	geneName := dbtable.Name{Schema: "core", Table: "gene"}
	for _, tc := range []struct {
		desc      string
		target    []dbtable.Column
		reference []dbtable.Column
		expected  Result
	}{
		{
			desc: "identical",
			target: []dbtable.Column{
				{Name: "gene_id", OID: oid.T_int8, NotNull: true},
				{Name: "biotype", OID: oid.T_text},
			},
			reference: []dbtable.Column{
				{Name: "gene_id", OID: oid.T_int8, NotNull: true},
				{Name: "biotype", OID: oid.T_text},
			},
			expected: Result{
				Compatible:       true,
				Columns:          []string{"gene_id", "biotype"},
				ReferenceColumns: []string{"gene_id", "biotype"},
			},
		},
		{
			desc: "extra reference columns are ignored",
			target: []dbtable.Column{
				{Name: "biotype", OID: oid.T_text},
			},
			reference: []dbtable.Column{
				{Name: "gene_id", OID: oid.T_int8, NotNull: true},
				{Name: "biotype", OID: oid.T_text},
				{Name: "description", OID: oid.T_text},
			},
			expected: Result{
				Compatible:       true,
				Extra:            []string{"gene_id", "description"},
				Columns:          []string{"biotype"},
				ReferenceColumns: []string{"biotype"},
			},
		},
		{
			desc: "missing columns",
			target: []dbtable.Column{
				{Name: "gene_id", OID: oid.T_int8},
				{Name: "biotype", OID: oid.T_text},
				{Name: "source", OID: oid.T_text},
			},
			reference: []dbtable.Column{
				{Name: "gene_id", OID: oid.T_int8},
			},
			expected: Result{
				Missing:          []string{"biotype", "source"},
				Columns:          []string{"gene_id"},
				ReferenceColumns: []string{"gene_id"},
			},
		},
		{
			desc: "case folded names and definition notes",
			target: []dbtable.Column{
				{Name: "Gene_ID", OID: oid.T_int4, NotNull: true},
			},
			reference: []dbtable.Column{
				{Name: "gene_id", OID: oid.T_int8},
			},
			expected: Result{
				Compatible:       true,
				Columns:          []string{"Gene_ID"},
				ReferenceColumns: []string{"gene_id"},
				Notes: []string{
					"column Gene_ID type mismatch: int4 vs int8",
					"column Gene_ID NOT NULL mismatch: true vs false",
				},
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			tc.expected.Target = geneName
			tc.expected.Reference = geneName
			res := Check(
				dbtable.Descriptor{Name: geneName, Columns: tc.target},
				dbtable.Descriptor{Name: geneName, Columns: tc.reference},
			)
			require.Equal(t, tc.expected, res)
		})
	}
}

func TestViolation(t *testing.T) {
	res := Check(
		dbtable.Descriptor{
			Name:    dbtable.Name{Table: "transcript"},
			Columns: []dbtable.Column{{Name: "id"}, {Name: "canonical_translation_id"}, {Name: "version"}},
		},
		dbtable.Descriptor{
			Name:    dbtable.Name{Schema: "ref", Table: "transcript"},
			Columns: []dbtable.Column{{Name: "id"}},
		},
	)
	require.False(t, res.Compatible)
	require.Equal(
		t,
		inconsistency.Violation{
			Kind:    inconsistency.SchemaIncompatible,
			Locator: "transcript",
			Detail:  "reference table ref.transcript is missing columns: canonical_translation_id, version",
		},
		res.Violation(),
	)
}

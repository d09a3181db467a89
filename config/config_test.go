package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/verify"
	"github.com/genomehc/hcverify/verify/keyverify"
	"github.com/stretchr/testify/require"
)

const suiteYAML = `
sources:
  - name: core
    url: ${HCVERIFY_TEST_CORE_URL}
  - name: mirror
    url: sqlite://mirror.db
checks:
  - name: exon_rows
    tables:
      target: core
      reference: mirror
      target_table: public.exon
  - name: exon_checksum
    tables:
      target: core
      reference: mirror
      target_table: exon
      reference_table: exon_copy
      strategy: checksum
      batch_size: 50
      max_violations: 0
  - name: exon_transcript_keys
    keys:
      source: core
      from: exon_transcript.exon_id
      to: exon.exon_id
      one_way: true
  - name: gene_counts
    sources:
      query: SELECT count(*) FROM gene
      sources: [core, mirror]
`

func TestLoadReader(t *testing.T) {
	t.Setenv("HCVERIFY_TEST_CORE_URL", "postgres://localhost/core")
	s, err := LoadReader(strings.NewReader(suiteYAML), "yaml")
	require.NoError(t, err)

	require.Equal(t, []Source{
		{Name: "core", URL: "postgres://localhost/core"},
		{Name: "mirror", URL: "sqlite://mirror.db"},
	}, s.Sources)
	require.Equal(t, verify.DefaultConcurrency, s.Concurrency)
	require.Equal(t, keyverify.DefaultSampleSize, s.SampleSize)
	require.Equal(t, DefaultFilterString, s.Filter)

	checks, err := s.VerifyChecks()
	require.NoError(t, err)
	require.Equal(t, []verify.Check{
		{
			Name:           "exon_rows",
			Kind:           verify.CheckTables,
			Target:         "core",
			Reference:      "mirror",
			TargetTable:    dbtable.Name{Schema: "public", Table: "exon"},
			ReferenceTable: dbtable.Name{Schema: "public", Table: "exon"},
			Strategy:       verify.StrategyRowByRow,
			BatchSize:      verify.DefaultRowBatchSize,
			MaxViolations:  verify.DefaultMaxViolations,
		},
		{
			Name:           "exon_checksum",
			Kind:           verify.CheckTables,
			Target:         "core",
			Reference:      "mirror",
			TargetTable:    dbtable.ParseName("exon"),
			ReferenceTable: dbtable.ParseName("exon_copy"),
			Strategy:       verify.StrategyChecksum,
			BatchSize:      50,
			MaxViolations:  0,
		},
		{
			Name:   "exon_transcript_keys",
			Kind:   verify.CheckKeys,
			Target: "core",
			Keys: keyverify.Request{
				From:       keyverify.Key{Table: dbtable.ParseName("exon_transcript"), Column: "exon_id"},
				To:         keyverify.Key{Table: dbtable.ParseName("exon"), Column: "exon_id"},
				OneWayOnly: true,
			},
		},
		{
			Name:    "gene_counts",
			Kind:    verify.CheckSources,
			Query:   "SELECT count(*) FROM gene",
			Sources: []string{"core", "mirror"},
		},
	}, checks)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	t.Setenv("HCVERIFY_TEST_CORE_URL", "postgres://localhost/core")
	t.Setenv("HCVERIFY_CONCURRENCY", "7")
	t.Setenv("HCVERIFY_FILTER", "^exon_")
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(suiteYAML), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, s.Concurrency)

	checks, err := s.VerifyChecks()
	require.NoError(t, err)
	var names []string
	for _, c := range checks {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"exon_rows", "exon_checksum", "exon_transcript_keys"}, names)
	require.Len(t, s.Opts(), 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	sources := `
sources:
  - name: a
    url: sqlite://a
  - name: b
    url: sqlite://b
`
	for _, tc := range []struct {
		desc        string
		yaml        string
		expectedErr string
	}{
		{
			desc:        "duplicate source",
			yaml:        sources + "  - name: a\n    url: sqlite://c\n",
			expectedErr: "source a is defined twice",
		},
		{
			desc:        "source without url",
			yaml:        "sources:\n  - name: a\n",
			expectedErr: "source a has no url",
		},
		{
			desc: "unknown source",
			yaml: sources + `
checks:
  - name: c
    tables: {target: a, reference: z, target_table: t}
`,
			expectedErr: `check c: unknown source "z"`,
		},
		{
			desc: "no shape",
			yaml: sources + `
checks:
  - name: c
`,
			expectedErr: "check c: exactly one of tables, keys or sources must be set",
		},
		{
			desc: "two shapes",
			yaml: sources + `
checks:
  - name: c
    tables: {target: a, reference: b, target_table: t}
    sources: {query: SELECT 1, sources: [a, b]}
`,
			expectedErr: "check c: exactly one of tables, keys or sources must be set",
		},
		{
			desc: "bad strategy",
			yaml: sources + `
checks:
  - name: c
    tables: {target: a, reference: b, target_table: t, strategy: hash}
`,
			expectedErr: `unknown strategy "hash"`,
		},
		{
			desc: "bad key",
			yaml: sources + `
checks:
  - name: c
    keys: {source: a, from: exon_id, to: exon.exon_id}
`,
			expectedErr: `key "exon_id" must be table.column`,
		},
		{
			desc: "single source",
			yaml: sources + `
checks:
  - name: c
    sources: {query: SELECT 1, sources: [a]}
`,
			expectedErr: "check c: at least 2 sources are required, got 1",
		},
		{
			desc: "duplicate check",
			yaml: sources + `
checks:
  - name: c
    sources: {query: SELECT 1, sources: [a, b]}
  - name: c
    sources: {query: SELECT 2, sources: [a, b]}
`,
			expectedErr: "check c is defined twice",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(tc.yaml), "yaml")
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

func TestFilterChecks(t *testing.T) {
	checks := []CheckConfig{{Name: "exon_rows"}, {Name: "gene_rows"}, {Name: "exon_keys"}}
	for _, tc := range []struct {
		filter   string
		expected []string
	}{
		{filter: DefaultFilterString, expected: []string{"exon_rows", "gene_rows", "exon_keys"}},
		{filter: "", expected: []string{"exon_rows", "gene_rows", "exon_keys"}},
		{filter: "^exon", expected: []string{"exon_rows", "exon_keys"}},
		{filter: "rows$", expected: []string{"exon_rows", "gene_rows"}},
		{filter: "transcript", expected: nil},
	} {
		t.Run(tc.filter, func(t *testing.T) {
			ret, err := FilterChecks(tc.filter, checks)
			require.NoError(t, err)
			var names []string
			for _, c := range ret {
				names = append(names, c.Name)
			}
			require.Equal(t, tc.expected, names)
		})
	}
	_, err := FilterChecks("(", checks)
	require.Error(t, err)
}

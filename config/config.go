// Package config loads check suites: the sources to connect to and the
// comparisons to run against them.
package config

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/verify"
	"github.com/genomehc/hcverify/verify/keyverify"
	"github.com/spf13/viper"
)

const EnvPrefix = "HCVERIFY"

type Source struct {
	Name string `mapstructure:"name"`
	// URL may reference environment variables, e.g. ${CORE_URL}.
	URL string `mapstructure:"url"`
}

type TableCheck struct {
	Target         string `mapstructure:"target"`
	Reference      string `mapstructure:"reference"`
	TargetTable    string `mapstructure:"target_table"`
	ReferenceTable string `mapstructure:"reference_table"`
	Strategy       string `mapstructure:"strategy"`
	BatchSize      int    `mapstructure:"batch_size"`
	MaxViolations  *int   `mapstructure:"max_violations"`
}

type KeyCheck struct {
	Source string `mapstructure:"source"`
	// From and To are table.column.
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
	OneWayOnly bool   `mapstructure:"one_way"`
}

type SourcesCheck struct {
	Query   string   `mapstructure:"query"`
	Sources []string `mapstructure:"sources"`
}

// CheckConfig holds exactly one of Tables, Keys or Sources.
type CheckConfig struct {
	Name    string        `mapstructure:"name"`
	Tables  *TableCheck   `mapstructure:"tables"`
	Keys    *KeyCheck     `mapstructure:"keys"`
	Sources *SourcesCheck `mapstructure:"sources"`
}

type Suite struct {
	Sources       []Source      `mapstructure:"sources"`
	Checks        []CheckConfig `mapstructure:"checks"`
	Concurrency   int           `mapstructure:"concurrency"`
	RowsPerSecond int           `mapstructure:"rows_per_second"`
	SampleSize    int           `mapstructure:"sample_size"`
	// Filter is a POSIX regular expression selecting checks by name.
	Filter string `mapstructure:"filter"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("concurrency", verify.DefaultConcurrency)
	v.SetDefault("rows_per_second", 0)
	v.SetDefault("sample_size", keyverify.DefaultSampleSize)
	v.SetDefault("filter", DefaultFilterString)
	return v
}

// Load reads a suite from a YAML, JSON or TOML file, chosen by extension.
// Top level settings can be overridden with HCVERIFY_ environment
// variables, e.g. HCVERIFY_CONCURRENCY.
func Load(path string) (*Suite, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "error reading suite %s", path)
	}
	return unmarshal(v)
}

// LoadReader reads a suite of the given config type ("yaml", "json", ...).
func LoadReader(r io.Reader, configType string) (*Suite, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrap(err, "error reading suite")
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Suite, error) {
	var s Suite
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "error decoding suite")
	}
	for i := range s.Sources {
		s.Sources[i].URL = os.ExpandEnv(s.Sources[i].URL)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) Validate() error {
	names := make(map[string]struct{}, len(s.Sources))
	for i, src := range s.Sources {
		if src.Name == "" {
			return errors.Newf("source %d has no name", i+1)
		}
		if src.URL == "" {
			return errors.Newf("source %s has no url", src.Name)
		}
		if _, ok := names[src.Name]; ok {
			return errors.Newf("source %s is defined twice", src.Name)
		}
		names[src.Name] = struct{}{}
	}
	checkNames := make(map[string]struct{}, len(s.Checks))
	for i, c := range s.Checks {
		if c.Name == "" {
			return errors.Newf("check %d has no name", i+1)
		}
		if _, ok := checkNames[c.Name]; ok {
			return errors.Newf("check %s is defined twice", c.Name)
		}
		checkNames[c.Name] = struct{}{}
		if err := c.validate(names); err != nil {
			return errors.Wrapf(err, "check %s", c.Name)
		}
	}
	if s.SampleSize < 0 {
		return errors.Newf("sample_size must be >= 0, got %d", s.SampleSize)
	}
	return nil
}

func (c CheckConfig) validate(sources map[string]struct{}) error {
	set := 0
	var refs []string
	if c.Tables != nil {
		set++
		refs = append(refs, c.Tables.Target, c.Tables.Reference)
		if c.Tables.TargetTable == "" {
			return errors.New("target_table is required")
		}
		if _, err := verify.ParseStrategy(c.Tables.Strategy); err != nil {
			return err
		}
		if c.Tables.BatchSize < 0 {
			return errors.Newf("batch_size must be > 0, got %d", c.Tables.BatchSize)
		}
		if c.Tables.MaxViolations != nil && *c.Tables.MaxViolations < 0 {
			return errors.Newf("max_violations must be >= 0, got %d", *c.Tables.MaxViolations)
		}
	}
	if c.Keys != nil {
		set++
		refs = append(refs, c.Keys.Source)
		for _, k := range []string{c.Keys.From, c.Keys.To} {
			if _, err := keyverify.ParseKey(k); err != nil {
				return err
			}
		}
	}
	if c.Sources != nil {
		set++
		refs = append(refs, c.Sources.Sources...)
		if strings.TrimSpace(c.Sources.Query) == "" {
			return errors.New("query is required")
		}
		if len(c.Sources.Sources) < 2 {
			return errors.Newf("at least 2 sources are required, got %d", len(c.Sources.Sources))
		}
	}
	if set != 1 {
		return errors.New("exactly one of tables, keys or sources must be set")
	}
	for _, ref := range refs {
		if _, ok := sources[ref]; !ok {
			return errors.Newf("unknown source %q", ref)
		}
	}
	return nil
}

// VerifyChecks converts the checks selected by the filter.
func (s *Suite) VerifyChecks() ([]verify.Check, error) {
	selected, err := FilterChecks(s.Filter, s.Checks)
	if err != nil {
		return nil, err
	}
	ret := make([]verify.Check, 0, len(selected))
	for _, c := range selected {
		vc := verify.Check{Name: c.Name}
		switch {
		case c.Tables != nil:
			vc.Kind = verify.CheckTables
			vc.Target = c.Tables.Target
			vc.Reference = c.Tables.Reference
			vc.TargetTable = dbtable.ParseName(c.Tables.TargetTable)
			vc.ReferenceTable = vc.TargetTable
			if c.Tables.ReferenceTable != "" {
				vc.ReferenceTable = dbtable.ParseName(c.Tables.ReferenceTable)
			}
			if vc.Strategy, err = verify.ParseStrategy(c.Tables.Strategy); err != nil {
				return nil, err
			}
			vc.BatchSize = verify.DefaultRowBatchSize
			if c.Tables.BatchSize > 0 {
				vc.BatchSize = c.Tables.BatchSize
			}
			vc.MaxViolations = verify.DefaultMaxViolations
			if c.Tables.MaxViolations != nil {
				vc.MaxViolations = *c.Tables.MaxViolations
			}
		case c.Keys != nil:
			vc.Kind = verify.CheckKeys
			vc.Target = c.Keys.Source
			if vc.Keys.From, err = keyverify.ParseKey(c.Keys.From); err != nil {
				return nil, err
			}
			if vc.Keys.To, err = keyverify.ParseKey(c.Keys.To); err != nil {
				return nil, err
			}
			vc.Keys.OneWayOnly = c.Keys.OneWayOnly
		case c.Sources != nil:
			vc.Kind = verify.CheckSources
			vc.Query = c.Sources.Query
			vc.Sources = c.Sources.Sources
		}
		ret = append(ret, vc)
	}
	return ret, nil
}

// Opts returns the suite wide options.
func (s *Suite) Opts() []verify.VerifyOpt {
	return []verify.VerifyOpt{
		verify.WithConcurrency(s.Concurrency),
		verify.WithRowsPerSecond(s.RowsPerSecond),
		verify.WithSampleSize(s.SampleSize),
	}
}

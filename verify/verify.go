package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/rowiterator"
	"github.com/genomehc/hcverify/verify/checksum"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/genomehc/hcverify/verify/keyverify"
	"github.com/genomehc/hcverify/verify/resultverify"
	"github.com/genomehc/hcverify/verify/rowverify"
	"github.com/genomehc/hcverify/verify/schemaverify"
	"github.com/genomehc/hcverify/verify/verifybase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultConcurrency = 4
const DefaultRowBatchSize = 1000
const DefaultMaxViolations = 100

// ErrConnection is the mark carried by every error caused by a source
// failing to answer. Test for it with github.com/cockroachdb/errors.Is or
// verifybase.IsConnectionError; the standard library errors.Is misses it.
var ErrConnection = verifybase.ErrConnection

type Strategy int

const (
	StrategyRowByRow Strategy = iota
	StrategyChecksum
)

func (s Strategy) String() string {
	switch s {
	case StrategyRowByRow:
		return "rowbyrow"
	case StrategyChecksum:
		return "checksum"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "", "rowbyrow", "rows":
		return StrategyRowByRow, nil
	case "checksum":
		return StrategyChecksum, nil
	}
	return 0, errors.Newf("unknown strategy %q, expected rowbyrow or checksum", s)
}

// ComparisonRequest compares the contents of TargetTable on Target with
// ReferenceTable on Reference. The connections are borrowed and never
// closed.
type ComparisonRequest struct {
	Target         dbconn.Conn
	Reference      dbconn.Conn
	TargetTable    dbtable.Name
	ReferenceTable dbtable.Name
	Strategy       Strategy
	BatchSize      int
	MaxViolations  int
}

func (r ComparisonRequest) Validate() error {
	if r.Target == nil || r.Reference == nil {
		return errors.New("target and reference connections must be set")
	}
	if r.TargetTable.Table == "" || r.ReferenceTable.Table == "" {
		return errors.New("target and reference tables must be set")
	}
	if r.Strategy != StrategyRowByRow && r.Strategy != StrategyChecksum {
		return errors.Newf("unknown strategy %s", r.Strategy)
	}
	if r.BatchSize <= 0 {
		return errors.Newf("batch size must be > 0, got %d", r.BatchSize)
	}
	if r.MaxViolations < 0 {
		return errors.Newf("max violations must be >= 0, got %d", r.MaxViolations)
	}
	return nil
}

type VerifyOpt func(*verifyOpts)

type verifyOpts struct {
	concurrency   int
	rowsPerSecond int
	sampleSize    int
}

func defaultOpts() verifyOpts {
	return verifyOpts{
		concurrency: DefaultConcurrency,
		sampleSize:  keyverify.DefaultSampleSize,
	}
}

func (o verifyOpts) rateLimit(rowBatchSize int) rate.Limit {
	if o.rowsPerSecond == 0 {
		return rate.Inf
	}
	perSecond := float64(rowBatchSize) / float64(o.rowsPerSecond)
	return rate.Every(time.Duration(float64(time.Second) * perSecond))
}

// WithConcurrency sets the number of checks RunSuite runs at once.
func WithConcurrency(c int) VerifyOpt {
	return func(o *verifyOpts) {
		o.concurrency = c
	}
}

// WithRowsPerSecond caps the rate target rows are fetched at during
// row-by-row comparison. Zero means unlimited.
func WithRowsPerSecond(c int) VerifyOpt {
	return func(o *verifyOpts) {
		o.rowsPerSecond = c
	}
}

// WithSampleSize sets how many orphaned keys are sampled per direction.
func WithSampleSize(c int) VerifyOpt {
	return func(o *verifyOpts) {
		o.sampleSize = c
	}
}

var (
	comparisonsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hcverify",
		Subsystem: "verify",
		Name:      "comparisons_running",
		Help:      "Number of comparisons that are running.",
	})
	comparisonsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hcverify",
		Subsystem: "verify",
		Name:      "comparisons_total",
		Help:      "Completed comparisons by shape and outcome.",
	}, []string{"shape", "outcome"})
	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hcverify",
		Subsystem: "verify",
		Name:      "violations_total",
		Help:      "Violations found by kind.",
	}, []string{"kind"})
)

func observe(shape string, res inconsistency.ComparisonResult, err error) {
	outcome := "pass"
	switch {
	case err != nil:
		outcome = "error"
	case res.Truncated:
		outcome = "truncated"
	case !res.Passed:
		outcome = "fail"
	}
	comparisonsTotal.WithLabelValues(shape, outcome).Inc()
	for _, v := range res.Violations {
		violationsTotal.WithLabelValues(v.Kind.String()).Inc()
	}
}

func finish(
	shape string,
	scope string,
	collector *inconsistency.Collector,
	reporter inconsistency.Reporter,
	err error,
) (inconsistency.ComparisonResult, error) {
	res := collector.Result()
	observe(shape, res, err)
	if err == nil && res.Passed {
		reporter.Report(inconsistency.SuccessReport{Scope: scope, Info: "check passed"})
	}
	return res, err
}

// CompareTables checks that the target table is consistent with the
// reference table. The reference must have every column of the target.
// Content problems are returned as violations; errors are reserved for
// invalid requests, missing target tables and failing sources, and in the
// last case come with the truncated partial result.
func CompareTables(
	ctx context.Context,
	req ComparisonRequest,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
	inOpts ...VerifyOpt,
) (inconsistency.ComparisonResult, error) {
	if err := req.Validate(); err != nil {
		return inconsistency.ComparisonResult{}, err
	}
	opts := defaultOpts()
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	comparisonsRunning.Inc()
	defer comparisonsRunning.Dec()

	scope := req.TargetTable.String()
	collector := inconsistency.NewCollector(reporter, req.MaxViolations, scope)
	err := compareTables(ctx, req, opts, collector, reporter, logger)
	return finish("tables", scope, collector, reporter, err)
}

func compareTables(
	ctx context.Context,
	req ComparisonRequest,
	opts verifyOpts,
	collector *inconsistency.Collector,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
) error {
	targetDesc, err := describe(ctx, req.Target, req.TargetTable)
	if err != nil {
		collector.Truncate()
		return err
	}
	refDesc, err := describe(ctx, req.Reference, req.ReferenceTable)
	if err != nil {
		if errors.Is(err, dbtable.ErrTableNotFound) {
			collector.Abort(inconsistency.Violation{
				Kind:    inconsistency.SchemaIncompatible,
				Locator: req.TargetTable.String(),
				Detail:  fmt.Sprintf("reference table %s does not exist on %s", req.ReferenceTable, req.Reference.ID()),
			})
			return nil
		}
		collector.Truncate()
		return err
	}

	check := schemaverify.Check(targetDesc, refDesc)
	for _, note := range check.Notes {
		reporter.Report(inconsistency.StatusReport{
			Info: fmt.Sprintf("%s vs %s: %s", req.TargetTable, req.ReferenceTable, note),
		})
	}
	if !check.Compatible {
		collector.Abort(check.Violation())
		return nil
	}

	logger.Debug().
		Str("table_name", req.TargetTable.String()).
		Str("strategy", req.Strategy.String()).
		Msgf("starting table comparison")
	switch req.Strategy {
	case StrategyChecksum:
		res, err := checksum.Compare(
			ctx,
			req.Target,
			rowiterator.Table{Name: req.TargetTable, ColumnNames: check.Columns},
			req.Reference,
			rowiterator.Table{Name: req.ReferenceTable, ColumnNames: check.ReferenceColumns},
		)
		if err != nil {
			collector.Truncate()
			return err
		}
		if !res.Match() {
			collector.Abort(res.Violation(req.TargetTable.String()))
		}
		return nil
	default:
		_, err := rowverify.VerifyRows(
			ctx,
			req.Target,
			req.Reference,
			rowverify.Table{
				Target:           req.TargetTable,
				Reference:        req.ReferenceTable,
				Columns:          check.Columns,
				ReferenceColumns: check.ReferenceColumns,
				OrderBy:          targetDesc.OrderKey(check.Columns),
			},
			req.BatchSize,
			rate.NewLimiter(opts.rateLimit(req.BatchSize), 1),
			collector,
			reporter,
			logger,
		)
		return err
	}
}

// describe introspects a table. A missing table is returned as is, other
// failures are connection errors.
func describe(ctx context.Context, conn dbconn.Conn, name dbtable.Name) (dbtable.Descriptor, error) {
	desc, err := dbtable.Describe(ctx, conn, name)
	if err != nil && !errors.Is(err, dbtable.ErrTableNotFound) {
		err = errors.Mark(err, ErrConnection)
	}
	return desc, err
}

// KeyResult is the outcome of CompareKeys.
type KeyResult struct {
	keyverify.Result
	Comparison inconsistency.ComparisonResult
}

// CompareKeys counts orphaned keys between two tables on one source. An
// empty table on either side yields zero orphans rather than flagging every
// row of the other.
func CompareKeys(
	ctx context.Context,
	conn dbconn.Conn,
	req keyverify.Request,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
	inOpts ...VerifyOpt,
) (KeyResult, error) {
	var ret KeyResult
	if conn == nil {
		return ret, errors.New("connection must be set")
	}
	if req.From.Table.Table == "" || req.From.Column == "" || req.To.Table.Table == "" || req.To.Column == "" {
		return ret, errors.New("both keys must name a table and a column")
	}
	opts := defaultOpts()
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	if opts.sampleSize < 0 {
		return ret, errors.Newf("sample size must be >= 0, got %d", opts.sampleSize)
	}
	comparisonsRunning.Inc()
	defer comparisonsRunning.Dec()

	scope := req.From.String()
	collector := inconsistency.NewCollector(reporter, inconsistency.NoLimit, scope)
	res, err := keyverify.Verify(ctx, conn, req, opts.sampleSize, collector)
	if err != nil && !errors.Is(err, dbtable.ErrTableNotFound) && !errors.Is(err, ErrConnection) {
		err = errors.Mark(err, ErrConnection)
	}
	if err != nil {
		collector.Truncate()
	}
	ret.Result = res
	if res.EmptyTable != "" {
		logger.Info().
			Str("table_name", res.EmptyTable).
			Msgf("table is empty; skipping orphan check between %s and %s", req.From, req.To)
	}
	for _, d := range res.Directions {
		reporter.Report(inconsistency.StatusReport{
			Info: fmt.Sprintf("%d orphans from %s to %s", d.Orphans, d.From, d.To),
		})
	}
	ret.Comparison, err = finish("keys", scope, collector, reporter, err)
	return ret, err
}

// CompareAcrossSources runs q against every source in order and checks they
// all return the same rows in the same order. The first divergence ends the
// comparison.
func CompareAcrossSources(
	ctx context.Context,
	q string,
	conns []dbconn.Conn,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
	inOpts ...VerifyOpt,
) (inconsistency.ComparisonResult, error) {
	if strings.TrimSpace(q) == "" {
		return inconsistency.ComparisonResult{}, errors.New("query must be set")
	}
	if len(conns) < 2 {
		return inconsistency.ComparisonResult{}, errors.Newf("at least 2 sources are required, got %d", len(conns))
	}
	opts := defaultOpts()
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	comparisonsRunning.Inc()
	defer comparisonsRunning.Dec()

	scope := "sources"
	collector := inconsistency.NewCollector(reporter, inconsistency.NoLimit, scope)
	res, err := resultverify.Compare(ctx, q, conns, collector)
	if err == nil {
		logger.Debug().
			Int("rows", res.Rows).
			Int("sources", len(conns)).
			Msgf("compared result sets")
	}
	return finish("sources", scope, collector, reporter, err)
}

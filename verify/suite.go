package verify

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/dbconn"
	"github.com/genomehc/hcverify/dbtable"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/genomehc/hcverify/verify/keyverify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type CheckKind string

const (
	CheckTables  CheckKind = "tables"
	CheckKeys    CheckKind = "keys"
	CheckSources CheckKind = "sources"
)

// Check is one comparison of a suite. Sources are referred to by name.
type Check struct {
	Name string
	Kind CheckKind

	// Tables.
	Target         string
	Reference      string
	TargetTable    dbtable.Name
	ReferenceTable dbtable.Name
	Strategy       Strategy
	BatchSize      int
	MaxViolations  int

	// Keys, run on Target.
	Keys keyverify.Request

	// Sources.
	Query   string
	Sources []string
}

// sourceNames returns the connections the check uses, in order.
func (c Check) sourceNames() []string {
	switch c.Kind {
	case CheckTables:
		return []string{c.Target, c.Reference}
	case CheckKeys:
		return []string{c.Target}
	case CheckSources:
		return c.Sources
	}
	return nil
}

// CheckResult is the outcome of one Check of a suite.
type CheckResult struct {
	Name   string
	Result inconsistency.ComparisonResult
	// Orphans is set for key checks.
	Orphans int64
	Err     error
}

func (r CheckResult) Passed() bool {
	return r.Err == nil && r.Result.Passed
}

func (r CheckResult) Verdict() string {
	if r.Err != nil {
		return fmt.Sprintf("ERROR (%s)", r.Err)
	}
	return r.Result.Verdict()
}

// RunSuite runs checks concurrently. Each check runs on its own clones of
// the named connections, which are closed when it finishes, so no source
// handle is shared between running comparisons. A failing check does not
// stop the others; results are returned in the order of checks.
func RunSuite(
	ctx context.Context,
	checks []Check,
	conns map[string]dbconn.Conn,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
	inOpts ...VerifyOpt,
) ([]CheckResult, error) {
	opts := defaultOpts()
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	for _, c := range checks {
		for _, name := range c.sourceNames() {
			if _, ok := conns[name]; !ok {
				return nil, errors.Newf("check %s refers to unknown source %q", c.Name, name)
			}
		}
	}

	numGoroutines := opts.concurrency
	if numGoroutines <= 0 {
		numGoroutines = runtime.NumCPU()
		logger.Debug().Int("concurrency", numGoroutines).
			Msgf("no concurrency set; defaulting to number of CPUs")
	}

	results := make([]CheckResult, len(checks))
	g, gCtx := errgroup.WithContext(ctx)
	workQueue := make(chan int)
	for goroutineIdx := 0; goroutineIdx < numGoroutines; goroutineIdx++ {
		g.Go(func() error {
			for idx := range workQueue {
				check := checks[idx]
				reporter.Report(inconsistency.StatusReport{
					Info: fmt.Sprintf("starting check %s", check.Name),
				})
				results[idx] = runCheck(gCtx, check, conns, reporter, logger, inOpts)
				if err := results[idx].Err; err != nil {
					logger.Err(err).
						Str("check", check.Name).
						Msgf("error running check")
				}
				reporter.Report(inconsistency.StatusReport{
					Info: fmt.Sprintf("check %s: %s", check.Name, results[idx].Verdict()),
				})
			}
			return nil
		})
	}
	go func() {
		defer close(workQueue)
		for idx := range checks {
			select {
			case workQueue <- idx:
			case <-gCtx.Done():
				return
			}
		}
	}()
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func runCheck(
	ctx context.Context,
	check Check,
	conns map[string]dbconn.Conn,
	reporter inconsistency.Reporter,
	logger zerolog.Logger,
	opts []VerifyOpt,
) CheckResult {
	ret := CheckResult{Name: check.Name}
	// Initialize a new connection for each source of the check.
	names := check.sourceNames()
	workerConns := make([]dbconn.Conn, len(names))
	defer func() {
		for _, conn := range workerConns {
			if conn != nil {
				_ = conn.Close(ctx)
			}
		}
	}()
	for i, name := range names {
		var err error
		workerConns[i], err = conns[name].Clone(ctx)
		if err != nil {
			ret.Err = errors.Mark(
				errors.Wrapf(err, "error establishing connection to %s", name),
				ErrConnection,
			)
			return ret
		}
	}

	logger = logger.With().Str("check", check.Name).Logger()
	switch check.Kind {
	case CheckTables:
		ret.Result, ret.Err = CompareTables(ctx, ComparisonRequest{
			Target:         workerConns[0],
			Reference:      workerConns[1],
			TargetTable:    check.TargetTable,
			ReferenceTable: check.ReferenceTable,
			Strategy:       check.Strategy,
			BatchSize:      check.BatchSize,
			MaxViolations:  check.MaxViolations,
		}, reporter, logger, opts...)
	case CheckKeys:
		var res KeyResult
		res, ret.Err = CompareKeys(ctx, workerConns[0], check.Keys, reporter, logger, opts...)
		ret.Result = res.Comparison
		ret.Orphans = res.Orphans
	case CheckSources:
		ret.Result, ret.Err = CompareAcrossSources(ctx, check.Query, workerConns, reporter, logger, opts...)
	default:
		ret.Err = errors.Newf("unknown check kind %q", check.Kind)
	}
	return ret
}

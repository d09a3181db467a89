package cmdutil

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/genomehc/hcverify/verify"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/rs/zerolog"
)

// ErrChecksFailed is returned by commands when a comparison did not pass.
var ErrChecksFailed = errors.New("one or more checks did not pass")

func Reporter(logger zerolog.Logger) inconsistency.CombinedReporter {
	reporter := inconsistency.CombinedReporter{}
	reporter.Reporters = append(reporter.Reporters, &inconsistency.LogReporter{Logger: logger})
	return reporter
}

// PrintResults writes one verdict line per check and returns ErrChecksFailed
// unless every check passed.
func PrintResults(w io.Writer, results []verify.CheckResult) error {
	failed := 0
	for _, r := range results {
		if !r.Passed() {
			failed++
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", r.Name, r.Verdict()); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Wrapf(ErrChecksFailed, "%d of %d checks", failed, len(results))
	}
	return nil
}

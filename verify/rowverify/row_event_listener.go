package rowverify

import (
	"fmt"

	"github.com/genomehc/hcverify/rowvalue"
	"github.com/genomehc/hcverify/verify/inconsistency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RowEventListener interface {
	// OnRowNotFound returns false if scanning must stop.
	OnRowNotFound(row rowvalue.Row) bool
	OnDuplicateMatch(row rowvalue.Row, matches int64)
	OnMatch()
	OnRowScan()
}

var (
	rowStatusMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hcverify",
		Subsystem: "rowverify",
		Name:      "row_verification_status",
		Help:      "Status of rows that have been looked up in the reference.",
	}, []string{"status"})
	rowsReadMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hcverify",
		Subsystem: "rowverify",
		Name:      "rows_read",
		Help:      "Rate of rows that are being read from the target.",
	})
)

func init() {
	// Initialise each metric by default.
	for _, s := range []string{"not_found", "duplicate", "success"} {
		rowStatusMetric.WithLabelValues(s)
	}
}

const progressInterval = 10000

type defaultRowEventListener struct {
	reporter  inconsistency.Reporter
	collector *inconsistency.Collector
	stats     Stats
	table     Table
}

func (n *defaultRowEventListener) OnRowNotFound(row rowvalue.Row) bool {
	n.stats.NotFound++
	rowStatusMetric.WithLabelValues("not_found").Inc()
	return n.collector.Add(inconsistency.Violation{
		Kind:    inconsistency.RowNotFound,
		Locator: rowvalue.Format(row),
		Detail:  fmt.Sprintf("row of %s not found in reference %s", n.table.Target, n.table.Reference),
	})
}

func (n *defaultRowEventListener) OnDuplicateMatch(row rowvalue.Row, matches int64) {
	n.stats.Duplicates++
	rowStatusMetric.WithLabelValues("duplicate").Inc()
	n.reporter.Report(inconsistency.DuplicateMatch{
		Scope:   n.table.Reference.String(),
		Locator: rowvalue.Format(row),
		Matches: matches,
	})
}

func (n *defaultRowEventListener) OnMatch() {
	n.stats.Matched++
	rowStatusMetric.WithLabelValues("success").Inc()
}

func (n *defaultRowEventListener) OnRowScan() {
	if n.stats.Scanned%progressInterval == 0 && n.stats.Scanned > 0 {
		n.reporter.Report(inconsistency.StatusReport{
			Info: fmt.Sprintf("progress on %s: %s", n.table.Target, n.stats.String()),
		})
	}
	rowsReadMetric.Inc()
	n.stats.Scanned++
}

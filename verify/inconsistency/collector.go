package inconsistency

import "fmt"

// NoLimit disables the violation cap of a Collector.
const NoLimit = -1

// Collector accumulates the violations of a single comparison, forwarding
// each to a Reporter. Once more than maxViolations violations are added it
// records one CapReached marker in place of the offending violation and
// refuses anything further.
//
// A Collector belongs to one comparison and is not safe for concurrent use.
type Collector struct {
	reporter      Reporter
	maxViolations int
	scope         string

	violations []Violation
	truncated  bool
	stopped    bool
}

func NewCollector(reporter Reporter, maxViolations int, scope string) *Collector {
	return &Collector{
		reporter:      reporter,
		maxViolations: maxViolations,
		scope:         scope,
	}
}

// Add records v. It returns false if the caller must stop scanning, which
// happens once the cap has been exceeded.
func (c *Collector) Add(v Violation) bool {
	if c.stopped {
		return false
	}
	if c.maxViolations != NoLimit && len(c.violations) >= c.maxViolations {
		c.record(Violation{
			Kind:    CapReached,
			Locator: c.scope,
			Detail: fmt.Sprintf(
				"violation cap of %d reached at %s; remaining rows were not scanned",
				c.maxViolations,
				v.Locator,
			),
		})
		c.truncated = true
		c.stopped = true
		return false
	}
	c.record(v)
	return true
}

// Abort records v regardless of the cap and ends the comparison. The result
// is not marked truncated: nothing was left unscanned that could have
// changed the verdict.
func (c *Collector) Abort(v Violation) {
	if c.stopped {
		return
	}
	c.record(v)
	c.stopped = true
}

// Truncate marks the result incomplete without recording a violation, for
// comparisons cut short by an error.
func (c *Collector) Truncate() {
	c.truncated = true
	c.stopped = true
}

// Stopped is true once no further violations are accepted.
func (c *Collector) Stopped() bool {
	return c.stopped
}

func (c *Collector) Len() int {
	return len(c.violations)
}

func (c *Collector) record(v Violation) {
	c.violations = append(c.violations, v)
	if c.reporter != nil {
		c.reporter.Report(v)
	}
}

// Result returns the verdict of everything collected so far.
func (c *Collector) Result() ComparisonResult {
	return ComparisonResult{
		Passed:     len(c.violations) == 0 && !c.truncated,
		Violations: append([]Violation(nil), c.violations...),
		Truncated:  c.truncated,
	}
}

// ComparisonResult is the verdict of one comparison. Truncated results are
// known to be incomplete and never pass.
type ComparisonResult struct {
	Passed     bool
	Violations []Violation
	Truncated  bool
}

// Count returns the number of violations of the given kind.
func (r ComparisonResult) Count(k Kind) int {
	n := 0
	for _, v := range r.Violations {
		if v.Kind == k {
			n++
		}
	}
	return n
}

// Verdict renders the result for operators. A truncated result is rendered
// differently from a complete failure so the violation count is not read as
// exhaustive.
func (r ComparisonResult) Verdict() string {
	if r.Passed {
		return "PASS"
	}
	found := len(r.Violations) - r.Count(CapReached)
	if r.Truncated {
		return fmt.Sprintf("FAIL (truncated: stopped after %d violations, more may exist)", found)
	}
	if found == 1 {
		return "FAIL (1 violation)"
	}
	return fmt.Sprintf("FAIL (%d violations)", found)
}

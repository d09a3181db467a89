package inconsistency

import "fmt"

type ReportableObject interface{}

// Kind classifies a Violation.
type Kind int

const (
	SchemaIncompatible Kind = iota + 1
	RowNotFound
	ChecksumMismatch
	SetMismatch
	ResultSetDivergence
	// CapReached marks that scanning stopped early because too many
	// violations were found. It is not itself a data problem.
	CapReached
)

func (k Kind) String() string {
	switch k {
	case SchemaIncompatible:
		return "SchemaIncompatible"
	case RowNotFound:
		return "RowNotFound"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case SetMismatch:
		return "SetMismatch"
	case ResultSetDivergence:
		return "ResultSetDivergence"
	case CapReached:
		return "CapReached"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Violation is a single inconsistency found by a comparison. Locator
// identifies where (a row key, a table or a source) and Detail what.
type Violation struct {
	Kind    Kind
	Locator string
	Detail  string
}

func (v Violation) String() string {
	if v.Detail == "" {
		return fmt.Sprintf("%s at %s", v.Kind, v.Locator)
	}
	return fmt.Sprintf("%s at %s: %s", v.Kind, v.Locator, v.Detail)
}

// DuplicateMatch is reported when a target row matches more than one row in
// the reference. The reference is redundant, which is not a target defect,
// so it does not count as a Violation.
type DuplicateMatch struct {
	Scope   string
	Locator string
	Matches int64
}

// SuccessReport is reported once a comparison passes.
type SuccessReport struct {
	Scope string
	Info  string
}

type StatusReport struct {
	Info string
}

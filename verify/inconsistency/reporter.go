package inconsistency

import (
	"fmt"

	"github.com/rs/zerolog"
)

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case Violation:
		if obj.Kind == CapReached {
			l.Warn().
				Str("locator", obj.Locator).
				Msg(obj.Detail)
			return
		}
		l.Warn().
			Str("kind", obj.Kind.String()).
			Str("locator", obj.Locator).
			Str("detail", obj.Detail).
			Msgf("violation detected")
	case DuplicateMatch:
		l.Info().
			Str("table_name", obj.Scope).
			Str("locator", obj.Locator).
			Int64("matches", obj.Matches).
			Msgf("reference has duplicate matches")
	case SuccessReport:
		l.Info().
			Str("scope", obj.Scope).
			Msg(obj.Info)
	case StatusReport:
		l.Info().Msg(obj.Info)
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) Close() {
}

package verifybase

import "github.com/cockroachdb/errors"

// ErrConnection marks errors caused by a source failing to answer a query.
// They are never evidence of an inconsistency and are surfaced separately
// from violations.
//
// The mark is only visible to github.com/cockroachdb/errors.Is or
// IsConnectionError; the standard library errors.Is does not see it.
var ErrConnection = errors.New("connection error")

// ConnectionError wraps err and marks it as an ErrConnection.
func ConnectionError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrConnection)
}

// IsConnectionError reports whether err was caused by a failing source.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

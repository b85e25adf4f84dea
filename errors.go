package anamnesis

import "fmt"

// Kind classifies an Error into one of the error conditions distinguished by
// callers: some are recoverable during optional resolution (NotFound), some
// are always programmer error (Locked), and some are fatal to the call that
// triggered them (Schema, Temporal, Consistency, Identity).
type Kind string

const (
	// KindNotFound is returned by a lookup of an unknown id or label.
	KindNotFound Kind = "not_found"
	// KindLocked is returned when a caller attempts to mutate a locked
	// state, or the traits of a belief inserted into one.
	KindLocked Kind = "locked"
	// KindSchema is returned for an unknown traittype, a container/scalar
	// mismatch, or a value of the wrong kind for its traittype.
	KindSchema Kind = "schema"
	// KindTemporal is returned when tt moves backward, the fork invariant
	// is violated, a tracks target lies in the future, or a tracks target's
	// base chain intersects the tracking state's own chain.
	KindTemporal Kind = "temporal"
	// KindConsistency is returned when Convergence components disagree on
	// ground_state, or a resolution names a non-component.
	KindConsistency Kind = "consistency"
	// KindIdentity is returned when a subject has no belief in the queried
	// state and resolution was required to proceed.
	KindIdentity Kind = "identity"
)

// Error is the value-typed error returned by every fallible operation in the
// package. Expected failures are never panics: callers distinguish them by
// Kind, not by string matching.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "Belief.GetTrait"
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("anamnesis: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("anamnesis: %s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// newErr constructs an *Error, optionally wrapping a cause.
func newErr(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
}

func notFoundf(op, format string, args ...any) *Error {
	return newErr(KindNotFound, op, fmt.Sprintf(format, args...), nil)
}

func lockedf(op, format string, args ...any) *Error {
	return newErr(KindLocked, op, fmt.Sprintf(format, args...), nil)
}

func schemaf(op, format string, args ...any) *Error {
	return newErr(KindSchema, op, fmt.Sprintf(format, args...), nil)
}

func temporalf(op, format string, args ...any) *Error {
	return newErr(KindTemporal, op, fmt.Sprintf(format, args...), nil)
}

func consistencyf(op, format string, args ...any) *Error {
	return newErr(KindConsistency, op, fmt.Sprintf(format, args...), nil)
}

func identityf(op, format string, args ...any) *Error {
	return newErr(KindIdentity, op, fmt.Sprintf(format, args...), nil)
}

// IsNotFound reports whether err is (or wraps) a KindNotFound Error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsLocked reports whether err is (or wraps) a KindLocked Error.
func IsLocked(err error) bool { return hasKind(err, KindLocked) }

// IsSchema reports whether err is (or wraps) a KindSchema Error.
func IsSchema(err error) bool { return hasKind(err, KindSchema) }

// IsTemporal reports whether err is (or wraps) a KindTemporal Error.
func IsTemporal(err error) bool { return hasKind(err, KindTemporal) }

// IsConsistency reports whether err is (or wraps) a KindConsistency Error.
func IsConsistency(err error) bool { return hasKind(err, KindConsistency) }

// IsIdentity reports whether err is (or wraps) a KindIdentity Error.
func IsIdentity(err error) bool { return hasKind(err, KindIdentity) }

func hasKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == k
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

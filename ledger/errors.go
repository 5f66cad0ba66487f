package ledger

import "errors"

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindEncoding covers oversized payloads and malformed carrier scripts or
	// transaction bytes. Always detected before any network interaction.
	KindEncoding Kind = "Encoding"

	// KindFunding covers insufficient spendable value and outputs with no
	// resolvable controlling key.
	KindFunding Kind = "Funding"

	// KindSigning covers the custody boundary failing to produce an
	// unlocking script for an input.
	KindSigning Kind = "Signing"

	// KindBroadcast covers ledger rejection of a finished transaction,
	// including double-spends from a lost update race.
	KindBroadcast Kind = "Broadcast"

	// KindNotFound covers lookups against unknown or not-yet-indexed
	// identifiers. A normal outcome, distinct from transport failures.
	KindNotFound Kind = "NotFound"

	// KindConsistency covers the index observing conflicting anchors for a
	// single coordinate.
	KindConsistency Kind = "Consistency"

	// KindInternal covers everything that indicates a bug rather than a
	// caller or environment problem.
	KindInternal Kind = "Internal"
)

// Error is the protocol's structured error type.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// E returns a new structured error.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return E(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsNotFound reports whether err is a NotFound protocol error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

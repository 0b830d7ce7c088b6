// Package obserr holds the cross-cutting "ambient" concerns shared by every
// layer of the store: the typed error taxonomy of spec §7, structured
// event logging, and an opt-in retry helper for storage errors.
package obserr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy of spec §7. It is not a type name in
// the sense of "one Go type per kind" — callers switch on Kind, not on the
// dynamic type of the error.
type Kind int

const (
	KindUnknown Kind = iota
	KindTermTooLarge
	KindNullByteInURI
	KindInvalidUTF8
	KindSequenceOverflow
	KindTypeMismatch
	KindNotFound
	KindOutOfRange
	KindStorageError
	KindCancelled
	KindDerivationLimitReached
	KindUnsupportedTerm
)

func (k Kind) String() string {
	switch k {
	case KindTermTooLarge:
		return "TermTooLarge"
	case KindNullByteInURI:
		return "NullByteInUri"
	case KindInvalidUTF8:
		return "InvalidUtf8"
	case KindSequenceOverflow:
		return "SequenceOverflow"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindNotFound:
		return "NotFound"
	case KindOutOfRange:
		return "OutOfRange"
	case KindStorageError:
		return "StorageError"
	case KindCancelled:
		return "Cancelled"
	case KindDerivationLimitReached:
		return "DerivationLimitReached"
	case KindUnsupportedTerm:
		return "UnsupportedTerm"
	default:
		return "Unknown"
	}
}

// Error is the store's single error type; every returned error that isn't a
// plain bug (programmer error, which panics) is one of these.
type Error struct {
	Kind  Kind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Inner)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Inner }

// Is lets errors.Is(err, obserr.NotFound) work by comparing Kind, the same
// way the teacher's sentinel errors (sopp.ErrNotFound) compare by identity
// — here comparison is by Kind since one Kind may carry varying messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg != "" || t.Inner != nil {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs a *Error of the given kind wrapping inner.
func Wrap(kind Kind, msg string, inner error) *Error {
	return &Error{Kind: kind, Msg: msg, Inner: inner}
}

// Sentinel values for errors.Is comparisons against a bare Kind.
var (
	NotFound               = &Error{Kind: KindNotFound}
	SequenceOverflow       = &Error{Kind: KindSequenceOverflow}
	Cancelled              = &Error{Kind: KindCancelled}
	DerivationLimitReached = &Error{Kind: KindDerivationLimitReached}
)

// StorageError wraps an underlying storage-engine error.
func StorageError(inner error) *Error {
	return Wrap(KindStorageError, "storage engine failure", inner)
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, or KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

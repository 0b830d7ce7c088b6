package triplestore

import (
	"context"

	"github.com/boutros/triplestore/internal/obserr"
)

// Error and Kind re-export the store's error taxonomy (spec §7) so callers
// never need to import an internal package to inspect an error.
type (
	Error = obserr.Error
	Kind  = obserr.Kind
)

const (
	KindUnknown                = obserr.KindUnknown
	KindTermTooLarge           = obserr.KindTermTooLarge
	KindNullByteInURI          = obserr.KindNullByteInURI
	KindInvalidUTF8            = obserr.KindInvalidUTF8
	KindSequenceOverflow       = obserr.KindSequenceOverflow
	KindTypeMismatch           = obserr.KindTypeMismatch
	KindNotFound               = obserr.KindNotFound
	KindOutOfRange             = obserr.KindOutOfRange
	KindStorageError           = obserr.KindStorageError
	KindCancelled              = obserr.KindCancelled
	KindDerivationLimitReached = obserr.KindDerivationLimitReached
	KindUnsupportedTerm        = obserr.KindUnsupportedTerm
)

// Sentinel errors usable with errors.Is.
var (
	ErrNotFound               = obserr.NotFound
	ErrSequenceOverflow       = obserr.SequenceOverflow
	ErrCancelled              = obserr.Cancelled
	ErrDerivationLimitReached = obserr.DerivationLimitReached
)

// KindOf extracts the Kind of err, or KindUnknown if err isn't one of this
// store's errors.
func KindOf(err error) Kind {
	return obserr.KindOf(err)
}

// Retry retries op with exponential backoff as long as it keeps returning
// storage-engine errors, stopping immediately on any other error kind or
// on ctx cancellation. It is never called by the store itself; callers
// opt in explicitly, per spec §7.
func Retry(ctx context.Context, op func() error) error {
	return obserr.Retry(ctx, op)
}

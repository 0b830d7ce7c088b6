package obserr

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// Retry retries op with exponential backoff as long as it returns a
// StorageError (spec §7: storage errors "may be retryable per engine").
// The core itself never calls Retry — per spec §7 the core does not retry
// internally; this exists purely for callers (or the thin caller-side
// wrapper spec §7 describes) that opt into retrying storage failures.
// Any other error kind is returned immediately without retrying.
func Retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if KindOf(err) != KindStorageError {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

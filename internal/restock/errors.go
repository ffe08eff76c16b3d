package restock

import "errors"

var (
	// ErrAlreadyClosed is reported when a waiter is cancelled or notified after
	// it already left the registry. It is logged, never returned to clients.
	ErrAlreadyClosed = errors.New("waiter already closed")

	// ErrTooManyWaiters is returned when the registry is at capacity
	ErrTooManyWaiters = errors.New("too many pending restock waiters")

	// ErrWaitTimeout is returned when a wait exceeds the configured maximum
	ErrWaitTimeout = errors.New("timed out waiting for restock")
)

package domain

import "context"

// StorageSession is the single storage session a batch runs on. Repositories bound to it always
// execute inside its current transaction.
type StorageSession interface {
	// EnsureAlive probes the session and transparently reopens it after a connectivity failure.
	// Work not yet committed is lost on reopen.
	EnsureAlive(ctx context.Context) error
	// Commit makes pending work durable and starts a new transaction.
	Commit(ctx context.Context) error
	// Refresh commits, closes the underlying connection and opens a new one.
	Refresh(ctx context.Context) error
	// Rollback discards pending work and starts a new transaction.
	Rollback(ctx context.Context) error
	Reconnects() int
}

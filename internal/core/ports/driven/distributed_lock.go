package driven

import (
	"context"
	"time"
)

// DistributedLock provides named advisory locking. The index services use it
// per entity (lock names "qa:<id>" and "doc:<id>") to keep two writers from
// interleaving the non-atomic delete-then-add sequence on the same QA pair
// or document; the worker uses it to keep full rebuilds single-flight.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held elsewhere.
	// The lock expires automatically after TTL (implementation dependent).
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort: TTL-based implementations
	// auto-expire anyway. Safe to call for a lock that is not held.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock. Returns an error if
	// the lock is not held by this instance. Implementations without TTL
	// support may make this a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

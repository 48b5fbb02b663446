package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates session access across multiple instances
// (replicas). The session manager holds the lock for the duration of one
// request's life cycle, guaranteeing at most one concurrent mutation per
// session.
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g. a
	// session ID). It blocks until the lock is acquired or the context is
	// canceled. Returns an UnlockFunc that MUST be called to release the
	// lock; the TTL bounds how long a crashed holder can wedge the key.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one visit across server replicas.
// The session manager takes it around every read-modify-write of a visit
// when the store is shared.
type DistributedLocker interface {
	// Lock blocks until the visit key is held or ctx is done. The lock
	// expires on its own after ttl if the holder dies. The returned
	// UnlockFunc must be called once the visit is written.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

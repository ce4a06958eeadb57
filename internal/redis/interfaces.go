package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the distributed locking operations the matching
// path depends on. Mocked in tests.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID int64, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID int64) error
	AcquireRideLock(ctx context.Context, rideID int64, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID int64) error
}

var _ LockStoreInterface = (*LockStore)(nil)

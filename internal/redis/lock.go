package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore hands out short-lived distributed locks for drivers and rides.
// The locks shed contention before the assignment transaction runs; the
// database transaction remains the correctness authority, so a lost or
// expired lock can never double-book a driver.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireDriverLock attempts to claim the given driver for assignment.
// Returns true if the lock was acquired, false if another matcher holds it.
func (s *LockStore) AcquireDriverLock(ctx context.Context, driverID int64, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, driverLockKey(driverID), "1", ttl).Result()
}

// ReleaseDriverLock releases the lock for the given driver.
func (s *LockStore) ReleaseDriverLock(ctx context.Context, driverID int64) error {
	return s.client.Del(ctx, driverLockKey(driverID)).Err()
}

// AcquireRideLock attempts to claim a ride so only one matching pass runs for
// it at a time.
func (s *LockStore) AcquireRideLock(ctx context.Context, rideID int64, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, rideLockKey(rideID), "1", ttl).Result()
}

// ReleaseRideLock releases the lock for the given ride.
func (s *LockStore) ReleaseRideLock(ctx context.Context, rideID int64) error {
	return s.client.Del(ctx, rideLockKey(rideID)).Err()
}

func driverLockKey(driverID int64) string {
	return fmt.Sprintf("lock:driver:%d", driverID)
}

func rideLockKey(rideID int64) string {
	return fmt.Sprintf("lock:ride:%d", rideID)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/lock"
)

// Lock settings shared by the lifecycle services. The TTL is a crash
// backstop, not an operation budget; lifecycle operations finish in
// milliseconds.
const (
	vehicleLockTTL = 10 * time.Second
	lockMaxRetries = 5
	lockRetryDelay = 100 * time.Millisecond
)

// withVehicleLock serializes lifecycle writes on one vehicle.
func withVehicleLock(ctx context.Context, locker lock.Locker, vehicleID int64, fn func(ctx context.Context) error) error {
	key := lock.Keys.Vehicle(vehicleID)

	acquired, err := locker.AcquireWithRetry(ctx, key, vehicleLockTTL, lockMaxRetries, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return fmt.Errorf("%w: vehicle %d", ErrVehicleBusy, vehicleID)
	}
	defer locker.Release(ctx, key)

	return fn(ctx)
}

// withTwoVehicleLocks locks two vehicles in ID order so concurrent swaps
// between the same pair cannot deadlock.
func withTwoVehicleLocks(ctx context.Context, locker lock.Locker, a, b int64, fn func(ctx context.Context) error) error {
	if a == b {
		return withVehicleLock(ctx, locker, a, fn)
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	return withVehicleLock(ctx, locker, first, func(ctx context.Context) error {
		return withVehicleLock(ctx, locker, second, fn)
	})
}

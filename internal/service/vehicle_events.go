package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// vehicleCacheKey is the read-through cache key for a vehicle.
func vehicleCacheKey(vehicleID int64) string {
	return fmt.Sprintf("cache:vehicle:%d", vehicleID)
}

// applyVehicleEvent runs the central transition table against the loaded
// vehicle and persists the result with a version-conditional write. On
// success the in-memory vehicle is updated to match the stored row. Writes
// are skipped for no-op transitions so versions only move when status does.
func applyVehicleEvent(ctx context.Context, vehicles repository.VehicleRepository, mtr *metrics.Metrics, v *domain.Vehicle, event domain.StatusEvent) error {
	next, err := domain.Transition(v.Status, event)
	if mtr != nil {
		defer func() { mtr.ObserveTransition(string(event), err) }()
	}
	if err != nil {
		return err
	}

	if next == v.Status {
		return nil
	}

	if err = vehicles.UpdateStatus(ctx, v.ID, next, v.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) && mtr != nil {
			mtr.VersionConflictsTotal.Inc()
		}
		return err
	}

	v.Status = next
	v.Version++
	return nil
}

// invalidateVehicle drops the cached vehicle after a status write. Cache
// errors are swallowed; the cache is an optimization, not a source of truth.
func invalidateVehicle(ctx context.Context, cache repository.Cache, vehicleID int64) {
	if cache == nil {
		return
	}
	_ = cache.Delete(ctx, vehicleCacheKey(vehicleID))
}

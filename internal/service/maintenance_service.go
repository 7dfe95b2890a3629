package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/lock"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// MaintenanceService owns the maintenance lifecycle: opening a record sends
// an AVAILABLE vehicle to the shop, closing it releases the vehicle. Closing
// is a soft operation so the per-vehicle shop history survives.
type MaintenanceService struct {
	maintenanceRepo repository.MaintenanceRepository
	vehicleRepo     repository.VehicleRepository
	tx              repository.TxManager
	locker          lock.Locker
	cache           repository.Cache
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewMaintenanceService creates a new MaintenanceService. Cache and metrics may be nil.
func NewMaintenanceService(
	maintenanceRepo repository.MaintenanceRepository,
	vehicleRepo repository.VehicleRepository,
	tx repository.TxManager,
	locker lock.Locker,
	cache repository.Cache,
	mtr *metrics.Metrics,
	logger zerolog.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		maintenanceRepo: maintenanceRepo,
		vehicleRepo:     vehicleRepo,
		tx:              tx,
		locker:          locker,
		cache:           cache,
		metrics:         mtr,
		logger:          logger.With().Str("service", "maintenance").Logger(),
	}
}

// Open creates a maintenance record and moves the vehicle to MAINTENANCE.
// Only AVAILABLE vehicles can enter the shop.
func (s *MaintenanceService) Open(ctx context.Context, vehicleID int64, additionalInfo string) (*domain.Maintenance, error) {
	var maintenance *domain.Maintenance
	err := withVehicleLock(ctx, s.locker, vehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
			if err != nil {
				return err
			}
			if !vehicle.IsAvailable() {
				return fmt.Errorf("%w: vehicle %d is %s", domain.ErrVehicleNotAvailable, vehicle.ID, vehicle.Status)
			}

			maintenance = domain.NewMaintenance(vehicleID, additionalInfo)
			if err := s.maintenanceRepo.Create(ctx, maintenance); err != nil {
				return err
			}

			return applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, vehicle, domain.EventMaintenanceOpened)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, vehicleID)

	s.logger.Info().
		Int64("maintenance_id", maintenance.ID).
		Int64("vehicle_id", vehicleID).
		Msg("maintenance opened")

	return maintenance, nil
}

// Close sets the record's end date and releases the vehicle. The row is kept
// as history. Closing an already-closed record fails.
func (s *MaintenanceService) Close(ctx context.Context, id int64) (*domain.Maintenance, error) {
	current, err := s.maintenanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOpen() {
		return nil, fmt.Errorf("%w: maintenance %d", domain.ErrMaintenanceAlreadyClosed, id)
	}

	var maintenance *domain.Maintenance
	err = withVehicleLock(ctx, s.locker, current.VehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			maintenance, err = s.maintenanceRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}

			if err := maintenance.Close(time.Now().UTC()); err != nil {
				return err
			}
			if err := s.maintenanceRepo.Update(ctx, maintenance); err != nil {
				return err
			}

			vehicle, err := s.vehicleRepo.GetByID(ctx, maintenance.VehicleID)
			if err != nil {
				return err
			}
			return applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, vehicle, domain.EventMaintenanceClosed)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, maintenance.VehicleID)

	s.logger.Info().
		Int64("maintenance_id", maintenance.ID).
		Int64("vehicle_id", maintenance.VehicleID).
		Msg("maintenance closed")

	return maintenance, nil
}

// UpdateInfo changes the free-form shop notes of a record.
func (s *MaintenanceService) UpdateInfo(ctx context.Context, id int64, additionalInfo string) (*domain.Maintenance, error) {
	maintenance, err := s.maintenanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	maintenance.AdditionalInfo = additionalInfo
	if err := s.maintenanceRepo.Update(ctx, maintenance); err != nil {
		return nil, err
	}

	return maintenance, nil
}

// Get retrieves a maintenance record by ID.
func (s *MaintenanceService) Get(ctx context.Context, id int64) (*domain.Maintenance, error) {
	return s.maintenanceRepo.GetByID(ctx, id)
}

// List returns maintenance records with pagination.
func (s *MaintenanceService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Maintenance], error) {
	return s.maintenanceRepo.List(ctx, opts)
}

// ListByVehicle returns the shop history of a vehicle.
func (s *MaintenanceService) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Maintenance, error) {
	return s.maintenanceRepo.ListByVehicle(ctx, vehicleID)
}

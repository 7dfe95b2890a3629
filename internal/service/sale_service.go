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

// SaleService owns the sale lifecycle and its side effects on vehicle status.
// Every write takes the vehicle lock, then runs "load sale + load vehicle +
// mutate both + persist both" inside one transaction, with the vehicle write
// version-checked as a second line of defense.
type SaleService struct {
	saleRepo    repository.SaleRepository
	vehicleRepo repository.VehicleRepository
	clientRepo  repository.ClientRepository
	tx          repository.TxManager
	locker      lock.Locker
	cache       repository.Cache
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewSaleService creates a new SaleService. Cache and metrics may be nil.
func NewSaleService(
	saleRepo repository.SaleRepository,
	vehicleRepo repository.VehicleRepository,
	clientRepo repository.ClientRepository,
	tx repository.TxManager,
	locker lock.Locker,
	cache repository.Cache,
	mtr *metrics.Metrics,
	logger zerolog.Logger,
) *SaleService {
	return &SaleService{
		saleRepo:    saleRepo,
		vehicleRepo: vehicleRepo,
		clientRepo:  clientRepo,
		tx:          tx,
		locker:      locker,
		cache:       cache,
		metrics:     mtr,
		logger:      logger.With().Str("service", "sale").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateSaleInput contains the data needed to open a sale.
type CreateSaleInput struct {
	ClientID  int64
	VehicleID int64
	Status    domain.SaleStatus
}

// UpdateSaleInput contains the data needed to update a sale. The referenced
// client and vehicle may both change; a vehicle change releases the old
// vehicle and occupies the new one.
type UpdateSaleInput struct {
	ID        int64
	ClientID  int64
	VehicleID int64
	Status    domain.SaleStatus
}

// =============================================================================
// Service Methods
// =============================================================================

// Create opens a sale against an AVAILABLE vehicle. The requested status may
// be RESERVED or SOLD; creating an already-canceled sale is rejected.
func (s *SaleService) Create(ctx context.Context, input CreateSaleInput) (*domain.Sale, error) {
	if !domain.SaleStatusValid(input.Status) {
		return nil, domain.NewDomainError(domain.ErrValidation,
			fmt.Sprintf("unknown sale status %s", input.Status), "")
	}
	if input.Status == domain.SaleCanceled {
		return nil, domain.NewDomainError(domain.ErrValidation,
			"cannot create a sale in CANCELED status", "")
	}

	if _, err := s.clientRepo.GetByID(ctx, input.ClientID); err != nil {
		return nil, err
	}

	var sale *domain.Sale
	err := withVehicleLock(ctx, s.locker, input.VehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			vehicle, err := s.vehicleRepo.GetByID(ctx, input.VehicleID)
			if err != nil {
				return err
			}
			if !vehicle.IsAvailable() {
				return fmt.Errorf("%w: vehicle %d is %s", domain.ErrVehicleNotAvailable, vehicle.ID, vehicle.Status)
			}

			sale = domain.NewSale(input.ClientID, input.VehicleID, input.Status)
			if err := s.saleRepo.Create(ctx, sale); err != nil {
				return err
			}

			return applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, vehicle, input.Status.VehicleEvent())
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, input.VehicleID)

	s.logger.Info().
		Int64("sale_id", sale.ID).
		Int64("vehicle_id", sale.VehicleID).
		Str("status", string(sale.Status)).
		Msg("sale created")

	return sale, nil
}

// Update changes a sale's client, vehicle or status, enforcing the sale
// transition table and keeping the vehicle status in lockstep.
func (s *SaleService) Update(ctx context.Context, input UpdateSaleInput) (*domain.Sale, error) {
	if !domain.SaleStatusValid(input.Status) {
		return nil, domain.NewDomainError(domain.ErrValidation,
			fmt.Sprintf("unknown sale status %s", input.Status), "")
	}

	if _, err := s.clientRepo.GetByID(ctx, input.ClientID); err != nil {
		return nil, err
	}

	// Peek at the sale outside the lock to learn which vehicles to lock.
	// Everything is re-read inside the transaction.
	current, err := s.saleRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	oldVehicleID := current.VehicleID

	var sale *domain.Sale
	err = withTwoVehicleLocks(ctx, s.locker, oldVehicleID, input.VehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			sale, err = s.saleRepo.GetByID(ctx, input.ID)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			statusChanged := sale.Status != input.Status
			vehicleChanged := sale.VehicleID != input.VehicleID

			if err := sale.ApplyStatus(input.Status, now); err != nil {
				return err
			}
			sale.ClientID = input.ClientID

			if vehicleChanged {
				oldVehicle, err := s.vehicleRepo.GetByID(ctx, sale.VehicleID)
				if err != nil {
					return err
				}
				newVehicle, err := s.vehicleRepo.GetByID(ctx, input.VehicleID)
				if err != nil {
					return err
				}
				if input.Status != domain.SaleCanceled && !newVehicle.IsAvailable() {
					return fmt.Errorf("%w: vehicle %d is %s", domain.ErrVehicleNotAvailable, newVehicle.ID, newVehicle.Status)
				}

				if err := applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, oldVehicle, domain.EventVehicleReleased); err != nil {
					return err
				}
				sale.VehicleID = input.VehicleID

				if input.Status != domain.SaleCanceled {
					if err := applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, newVehicle, input.Status.VehicleEvent()); err != nil {
						return err
					}
				}
			} else if statusChanged {
				vehicle, err := s.vehicleRepo.GetByID(ctx, sale.VehicleID)
				if err != nil {
					return err
				}
				if err := applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, vehicle, input.Status.VehicleEvent()); err != nil {
					return err
				}
			}

			return s.saleRepo.Update(ctx, sale)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, oldVehicleID)
	invalidateVehicle(ctx, s.cache, input.VehicleID)

	s.logger.Info().
		Int64("sale_id", sale.ID).
		Int64("vehicle_id", sale.VehicleID).
		Str("status", string(sale.Status)).
		Msg("sale updated")

	return sale, nil
}

// Get retrieves a sale by ID.
func (s *SaleService) Get(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.saleRepo.GetByID(ctx, id)
}

// List returns sales with pagination.
func (s *SaleService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Sale], error) {
	return s.saleRepo.List(ctx, opts)
}

// ListByVehicle returns the sale history of a vehicle.
func (s *SaleService) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Sale, error) {
	return s.saleRepo.ListByVehicle(ctx, vehicleID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/lock"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// FinancingService owns the financing lifecycle. A financing contract holds
// its vehicle as SOLD from creation until the contract is canceled; at most
// one non-CANCELED contract may exist per vehicle. The check runs under the
// vehicle lock and a partial unique index backstops it.
type FinancingService struct {
	financingRepo repository.FinancingRepository
	vehicleRepo   repository.VehicleRepository
	clientRepo    repository.ClientRepository
	tx            repository.TxManager
	locker        lock.Locker
	cache         repository.Cache
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewFinancingService creates a new FinancingService. Cache and metrics may be nil.
func NewFinancingService(
	financingRepo repository.FinancingRepository,
	vehicleRepo repository.VehicleRepository,
	clientRepo repository.ClientRepository,
	tx repository.TxManager,
	locker lock.Locker,
	cache repository.Cache,
	mtr *metrics.Metrics,
	logger zerolog.Logger,
) *FinancingService {
	return &FinancingService{
		financingRepo: financingRepo,
		vehicleRepo:   vehicleRepo,
		clientRepo:    clientRepo,
		tx:            tx,
		locker:        locker,
		cache:         cache,
		metrics:       mtr,
		logger:        logger.With().Str("service", "financing").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// FinancingTerms carries the mutable monetary terms of a contract.
type FinancingTerms struct {
	TotalAmount          int64
	DownPayment          int64
	InstallmentCount     int
	InstallmentValue     int64
	AnnualInterestRate   float64
	ContractDate         time.Time
	FirstInstallmentDate time.Time
}

// CreateFinancingInput contains the data needed to draw a contract.
type CreateFinancingInput struct {
	ClientID  int64
	VehicleID int64
	Terms     FinancingTerms
}

// UpdateFinancingInput contains the data needed to update a contract's terms
// and references. Status changes go through UpdateStatus.
type UpdateFinancingInput struct {
	ID        int64
	ClientID  int64
	VehicleID int64
	Terms     FinancingTerms
}

// =============================================================================
// Service Methods
// =============================================================================

// Create draws a contract in DRAFT status and takes the vehicle as SOLD.
func (s *FinancingService) Create(ctx context.Context, input CreateFinancingInput) (*domain.Financing, error) {
	if _, err := s.clientRepo.GetByID(ctx, input.ClientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	financing := &domain.Financing{
		ClientID:             input.ClientID,
		VehicleID:            input.VehicleID,
		TotalAmount:          input.Terms.TotalAmount,
		DownPayment:          input.Terms.DownPayment,
		InstallmentCount:     input.Terms.InstallmentCount,
		InstallmentValue:     input.Terms.InstallmentValue,
		AnnualInterestRate:   input.Terms.AnnualInterestRate,
		ContractDate:         input.Terms.ContractDate,
		FirstInstallmentDate: input.Terms.FirstInstallmentDate,
		Status:               domain.FinancingDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if financing.ContractDate.IsZero() {
		financing.ContractDate = now
	}
	if err := financing.Validate(); err != nil {
		return nil, err
	}

	err := withVehicleLock(ctx, s.locker, input.VehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			vehicle, err := s.vehicleRepo.GetByID(ctx, input.VehicleID)
			if err != nil {
				return err
			}

			if err := s.ensureNoActiveFinancing(ctx, input.VehicleID); err != nil {
				return err
			}

			if err := s.financingRepo.Create(ctx, financing); err != nil {
				return err
			}

			return applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, vehicle, domain.EventFinancingOpened)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, input.VehicleID)

	s.logger.Info().
		Int64("financing_id", financing.ID).
		Int64("vehicle_id", financing.VehicleID).
		Int64("total_amount", financing.TotalAmount).
		Msg("financing created")

	return financing, nil
}

// Update changes a contract's terms and references. Re-pointing the contract
// at a different vehicle releases the old vehicle and takes the new one as
// SOLD, symmetric with the sale lifecycle.
func (s *FinancingService) Update(ctx context.Context, input UpdateFinancingInput) (*domain.Financing, error) {
	if _, err := s.clientRepo.GetByID(ctx, input.ClientID); err != nil {
		return nil, err
	}

	current, err := s.financingRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	oldVehicleID := current.VehicleID

	var financing *domain.Financing
	err = withTwoVehicleLocks(ctx, s.locker, oldVehicleID, input.VehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			financing, err = s.financingRepo.GetByID(ctx, input.ID)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			vehicleChanged := financing.VehicleID != input.VehicleID

			financing.ClientID = input.ClientID
			financing.TotalAmount = input.Terms.TotalAmount
			financing.DownPayment = input.Terms.DownPayment
			financing.InstallmentCount = input.Terms.InstallmentCount
			financing.InstallmentValue = input.Terms.InstallmentValue
			financing.AnnualInterestRate = input.Terms.AnnualInterestRate
			if !input.Terms.ContractDate.IsZero() {
				financing.ContractDate = input.Terms.ContractDate
			}
			if !input.Terms.FirstInstallmentDate.IsZero() {
				financing.FirstInstallmentDate = input.Terms.FirstInstallmentDate
			}
			financing.UpdatedAt = now

			if err := financing.Validate(); err != nil {
				return err
			}

			if vehicleChanged {
				oldVehicle, err := s.vehicleRepo.GetByID(ctx, financing.VehicleID)
				if err != nil {
					return err
				}
				newVehicle, err := s.vehicleRepo.GetByID(ctx, input.VehicleID)
				if err != nil {
					return err
				}

				if err := s.ensureNoActiveFinancing(ctx, input.VehicleID); err != nil {
					return err
				}

				// Release first; an active contract always holds its vehicle
				// as SOLD, and canceled contracts don't reach this path with
				// a vehicle change that matters.
				if financing.IsActive() {
					if err := applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, oldVehicle, domain.EventVehicleReleased); err != nil {
						return err
					}
					if err := applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, newVehicle, domain.EventFinancingOpened); err != nil {
						return err
					}
				}
				financing.VehicleID = input.VehicleID
			}

			return s.financingRepo.Update(ctx, financing)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, oldVehicleID)
	invalidateVehicle(ctx, s.cache, input.VehicleID)

	return financing, nil
}

// UpdateStatus moves a contract through its lifecycle. Canceling releases the
// vehicle; activating a draft leaves the vehicle SOLD as it already is.
func (s *FinancingService) UpdateStatus(ctx context.Context, id int64, status domain.FinancingStatus) (*domain.Financing, error) {
	if !domain.FinancingStatusValid(status) {
		return nil, domain.NewDomainError(domain.ErrValidation,
			fmt.Sprintf("unknown financing status %s", status), "")
	}

	current, err := s.financingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var financing *domain.Financing
	err = withVehicleLock(ctx, s.locker, current.VehicleID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			financing, err = s.financingRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			canceling := financing.Status != domain.FinancingCanceled && status == domain.FinancingCanceled

			if err := financing.ApplyStatus(status, now); err != nil {
				return err
			}

			if canceling {
				vehicle, err := s.vehicleRepo.GetByID(ctx, financing.VehicleID)
				if err != nil {
					return err
				}
				if err := applyVehicleEvent(ctx, s.vehicleRepo, s.metrics, vehicle, domain.EventVehicleReleased); err != nil {
					return err
				}
			}

			return s.financingRepo.Update(ctx, financing)
		})
	})
	if err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, financing.VehicleID)

	s.logger.Info().
		Int64("financing_id", financing.ID).
		Str("status", string(financing.Status)).
		Msg("financing status updated")

	return financing, nil
}

// Get retrieves a contract by ID.
func (s *FinancingService) Get(ctx context.Context, id int64) (*domain.Financing, error) {
	return s.financingRepo.GetByID(ctx, id)
}

// List returns contracts with pagination.
func (s *FinancingService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Financing], error) {
	return s.financingRepo.List(ctx, opts)
}

// ListByVehicle returns the financing history of a vehicle.
func (s *FinancingService) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Financing, error) {
	return s.financingRepo.ListByVehicle(ctx, vehicleID)
}

// FindActiveByVehicle returns the contract currently holding the vehicle.
func (s *FinancingService) FindActiveByVehicle(ctx context.Context, vehicleID int64) (*domain.Financing, error) {
	return s.financingRepo.FindActiveByVehicle(ctx, vehicleID)
}

// ensureNoActiveFinancing enforces the one-active-contract-per-vehicle
// invariant under the vehicle lock.
func (s *FinancingService) ensureNoActiveFinancing(ctx context.Context, vehicleID int64) error {
	existing, err := s.financingRepo.FindActiveByVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, domain.ErrFinancingNotFound) {
			return nil
		}
		return err
	}
	return fmt.Errorf("%w: contract %d holds vehicle %d", domain.ErrFinancingActiveExists, existing.ID, vehicleID)
}

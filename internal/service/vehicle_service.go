package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// vehicleCacheTTL bounds staleness of the read-through vehicle cache.
const vehicleCacheTTL = 5 * time.Minute

// VehicleService handles vehicle registry operations.
type VehicleService struct {
	vehicleRepo repository.VehicleRepository
	cache       repository.Cache
	logger      zerolog.Logger
}

// NewVehicleService creates a new VehicleService. Cache may be nil.
func NewVehicleService(
	vehicleRepo repository.VehicleRepository,
	cache repository.Cache,
	logger zerolog.Logger,
) *VehicleService {
	return &VehicleService{
		vehicleRepo: vehicleRepo,
		cache:       cache,
		logger:      logger.With().Str("service", "vehicle").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateVehicleInput contains the data needed to register a vehicle.
type CreateVehicleInput struct {
	Brand        string
	Model        string
	ModelYear    int
	Chassis      string
	Plate        string
	Color        string
	Mileage      int64
	Price        int64
	Fuel         domain.FuelType
	Transmission domain.TransmissionType
	Doors        int
	Motor        string
	Power        string
}

// UpdateVehicleInput contains the data needed to update a vehicle's
// descriptive attributes. Status is never updated here.
type UpdateVehicleInput struct {
	ID int64
	CreateVehicleInput
}

// SearchVehiclesInput contains filter and pagination for vehicle search.
type SearchVehiclesInput struct {
	Filter domain.VehicleFilter
	Page   repository.ListOptions
}

// =============================================================================
// Service Methods
// =============================================================================

// Create registers a new vehicle in AVAILABLE status.
func (s *VehicleService) Create(ctx context.Context, input CreateVehicleInput) (*domain.Vehicle, error) {
	vehicle := domain.NewVehicle(input.Brand, input.Model, input.Chassis, input.ModelYear)
	vehicle.Plate = input.Plate
	vehicle.Color = input.Color
	vehicle.Mileage = input.Mileage
	vehicle.Price = input.Price
	vehicle.Fuel = input.Fuel
	vehicle.Transmission = input.Transmission
	vehicle.Doors = input.Doors
	vehicle.Motor = input.Motor
	vehicle.Power = input.Power

	if err := vehicle.Validate(); err != nil {
		return nil, err
	}

	// Early rejection; the unique index is the real backstop.
	taken, err := s.vehicleRepo.ExistsByChassis(ctx, vehicle.Chassis, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrChassisTaken, vehicle.Chassis)
	}

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("vehicle_id", vehicle.ID).
		Str("chassis", vehicle.Chassis).
		Msg("vehicle registered")

	return vehicle, nil
}

// Get retrieves a vehicle, serving from cache when possible.
func (s *VehicleService) Get(ctx context.Context, id int64) (*domain.Vehicle, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, vehicleCacheKey(id)); err == nil {
			var vehicle domain.Vehicle
			if err := json.Unmarshal(data, &vehicle); err == nil {
				return &vehicle, nil
			}
		}
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(vehicle); err == nil {
			_ = s.cache.Set(ctx, vehicleCacheKey(id), data, vehicleCacheTTL)
		}
	}

	return vehicle, nil
}

// GetByChassis retrieves a vehicle by chassis number.
func (s *VehicleService) GetByChassis(ctx context.Context, chassis string) (*domain.Vehicle, error) {
	return s.vehicleRepo.GetByChassis(ctx, chassis)
}

// Search returns vehicles matching the filter.
func (s *VehicleService) Search(ctx context.Context, input SearchVehiclesInput) (*repository.ListResult[domain.Vehicle], error) {
	return s.vehicleRepo.Search(ctx, input.Filter, input.Page)
}

// Update changes a vehicle's descriptive attributes.
func (s *VehicleService) Update(ctx context.Context, input UpdateVehicleInput) (*domain.Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	vehicle.Brand = input.Brand
	vehicle.Model = input.Model
	vehicle.ModelYear = input.ModelYear
	vehicle.Chassis = input.Chassis
	vehicle.Plate = input.Plate
	vehicle.Color = input.Color
	vehicle.Mileage = input.Mileage
	vehicle.Price = input.Price
	vehicle.Fuel = input.Fuel
	vehicle.Transmission = input.Transmission
	vehicle.Doors = input.Doors
	vehicle.Motor = input.Motor
	vehicle.Power = input.Power
	vehicle.UpdatedAt = time.Now().UTC()

	if err := vehicle.Validate(); err != nil {
		return nil, err
	}

	// Self-exclusion: the vehicle keeping its own chassis is fine.
	taken, err := s.vehicleRepo.ExistsByChassis(ctx, vehicle.Chassis, vehicle.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrChassisTaken, vehicle.Chassis)
	}

	if err := s.vehicleRepo.Update(ctx, vehicle); err != nil {
		return nil, err
	}

	invalidateVehicle(ctx, s.cache, vehicle.ID)

	return vehicle, nil
}

// Delete removes a vehicle. Only AVAILABLE vehicles can be deleted; a vehicle
// held by a sale, financing or maintenance record must be released first.
func (s *VehicleService) Delete(ctx context.Context, id int64) error {
	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !vehicle.IsAvailable() {
		return fmt.Errorf("%w: vehicle %d is %s", domain.ErrVehicleNotAvailable, id, vehicle.Status)
	}

	if err := s.vehicleRepo.Delete(ctx, id); err != nil {
		return err
	}

	invalidateVehicle(ctx, s.cache, id)

	s.logger.Info().Int64("vehicle_id", id).Msg("vehicle deleted")
	return nil
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/lock"
)

func newMaintenanceFixture() (*MaintenanceService, *MockMaintenanceRepository, *MockVehicleRepository) {
	maintenanceRepo := NewMockMaintenanceRepository()
	vehicleRepo := NewMockVehicleRepository()
	svc := NewMaintenanceService(
		maintenanceRepo, vehicleRepo,
		mockTxManager{}, lock.NewNoOpLocker(), nil, nil, zerolog.Nop(),
	)
	return svc, maintenanceRepo, vehicleRepo
}

func TestMaintenanceService_Open(t *testing.T) {
	svc, _, vehicleRepo := newMaintenanceFixture()
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	maintenance, err := svc.Open(context.Background(), vehicle.ID, "brake pads")
	require.NoError(t, err)
	assert.Equal(t, "brake pads", maintenance.AdditionalInfo)
	assert.False(t, maintenance.StartDate.IsZero())
	assert.Nil(t, maintenance.EndDate)
	assert.True(t, maintenance.IsOpen())

	stored, err := vehicleRepo.GetByID(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleMaintenance, stored.Status)
}

func TestMaintenanceService_Open_VehicleNotAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status domain.VehicleStatus
	}{
		{"reserved vehicle", domain.VehicleReserved},
		{"sold vehicle", domain.VehicleSold},
		{"already in maintenance", domain.VehicleMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, maintenanceRepo, vehicleRepo := newMaintenanceFixture()
			vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: tt.status})

			_, err := svc.Open(context.Background(), vehicle.ID, "oil change")
			require.ErrorIs(t, err, domain.ErrVehicleNotAvailable)

			// No orphaned record and no vehicle change.
			records, _ := maintenanceRepo.ListByVehicle(context.Background(), vehicle.ID)
			assert.Empty(t, records)
			stored, _ := vehicleRepo.GetByID(context.Background(), vehicle.ID)
			assert.Equal(t, tt.status, stored.Status)
		})
	}
}

func TestMaintenanceService_Open_UnknownVehicle(t *testing.T) {
	svc, _, _ := newMaintenanceFixture()
	_, err := svc.Open(context.Background(), 99, "oil change")
	require.ErrorIs(t, err, domain.ErrVehicleNotFound)
}

func TestMaintenanceService_Close(t *testing.T) {
	svc, maintenanceRepo, vehicleRepo := newMaintenanceFixture()
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleMaintenance})
	start := time.Now().UTC().Add(-2 * time.Hour)
	record := maintenanceRepo.Add(&domain.Maintenance{
		VehicleID:      vehicle.ID,
		AdditionalInfo: "brake pads",
		StartDate:      start,
	})

	closed, err := svc.Close(context.Background(), record.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndDate)
	assert.Equal(t, start, closed.StartDate, "start date must survive the close")
	assert.False(t, closed.IsOpen())

	// The row is kept as history.
	history, err := svc.ListByVehicle(context.Background(), vehicle.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].EndDate)

	stored, err := vehicleRepo.GetByID(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleAvailable, stored.Status, "close must release the vehicle")
}

func TestMaintenanceService_Close_AlreadyClosed(t *testing.T) {
	svc, maintenanceRepo, vehicleRepo := newMaintenanceFixture()
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})
	end := time.Now().UTC().Add(-1 * time.Hour)
	record := maintenanceRepo.Add(&domain.Maintenance{
		VehicleID: vehicle.ID,
		StartDate: end.Add(-2 * time.Hour),
		EndDate:   &end,
	})

	_, err := svc.Close(context.Background(), record.ID)
	require.ErrorIs(t, err, domain.ErrMaintenanceAlreadyClosed)
}

func TestMaintenanceService_UpdateInfo(t *testing.T) {
	svc, maintenanceRepo, vehicleRepo := newMaintenanceFixture()
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleMaintenance})
	record := maintenanceRepo.Add(&domain.Maintenance{
		VehicleID:      vehicle.ID,
		AdditionalInfo: "brake pads",
		StartDate:      time.Now().UTC(),
	})

	updated, err := svc.UpdateInfo(context.Background(), record.ID, "brake pads and rotors")
	require.NoError(t, err)
	assert.Equal(t, "brake pads and rotors", updated.AdditionalInfo)

	stored, _ := maintenanceRepo.GetByID(context.Background(), record.ID)
	assert.Equal(t, "brake pads and rotors", stored.AdditionalInfo)
}

func TestMaintenanceService_OpenCloseReopen(t *testing.T) {
	svc, _, vehicleRepo := newMaintenanceFixture()
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	first, err := svc.Open(context.Background(), vehicle.ID, "first visit")
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), first.ID)
	require.NoError(t, err)

	// The vehicle is free again, so a second visit opens fine.
	second, err := svc.Open(context.Background(), vehicle.ID, "second visit")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := svc.ListByVehicle(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

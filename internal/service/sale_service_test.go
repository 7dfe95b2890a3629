package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/lock"
)

func newSaleFixture() (*SaleService, *MockSaleRepository, *MockVehicleRepository, *MockClientRepository) {
	saleRepo := NewMockSaleRepository()
	vehicleRepo := NewMockVehicleRepository()
	clientRepo := NewMockClientRepository()
	svc := NewSaleService(
		saleRepo, vehicleRepo, clientRepo,
		mockTxManager{}, lock.NewNoOpLocker(), nil, nil, zerolog.Nop(),
	)
	return svc, saleRepo, vehicleRepo, clientRepo
}

func TestSaleService_Create(t *testing.T) {
	tests := []struct {
		name          string
		vehicleStatus domain.VehicleStatus
		saleStatus    domain.SaleStatus
		wantErr       error
		wantVehicle   domain.VehicleStatus
	}{
		{
			name:          "reserve available vehicle",
			vehicleStatus: domain.VehicleAvailable,
			saleStatus:    domain.SaleReserved,
			wantVehicle:   domain.VehicleReserved,
		},
		{
			name:          "sell available vehicle",
			vehicleStatus: domain.VehicleAvailable,
			saleStatus:    domain.SaleSold,
			wantVehicle:   domain.VehicleSold,
		},
		{
			name:          "reserved vehicle rejected",
			vehicleStatus: domain.VehicleReserved,
			saleStatus:    domain.SaleSold,
			wantErr:       domain.ErrVehicleNotAvailable,
		},
		{
			name:          "vehicle in maintenance rejected",
			vehicleStatus: domain.VehicleMaintenance,
			saleStatus:    domain.SaleReserved,
			wantErr:       domain.ErrVehicleNotAvailable,
		},
		{
			name:          "canceled status rejected",
			vehicleStatus: domain.VehicleAvailable,
			saleStatus:    domain.SaleCanceled,
			wantErr:       domain.ErrValidation,
		},
		{
			name:          "unknown status rejected",
			vehicleStatus: domain.VehicleAvailable,
			saleStatus:    domain.SaleStatus("PAID"),
			wantErr:       domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, vehicleRepo, clientRepo := newSaleFixture()
			client := clientRepo.Add(&domain.Client{FirstName: "Ana", Email: "ana@example.com"})
			vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: tt.vehicleStatus})

			sale, err := svc.Create(context.Background(), CreateSaleInput{
				ClientID:  client.ID,
				VehicleID: vehicle.ID,
				Status:    tt.saleStatus,
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				stored, _ := vehicleRepo.GetByID(context.Background(), vehicle.ID)
				assert.Equal(t, tt.vehicleStatus, stored.Status, "vehicle must be untouched")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, sale)
			assert.Equal(t, tt.saleStatus, sale.Status)
			if tt.saleStatus == domain.SaleReserved {
				assert.NotNil(t, sale.ReserveDate)
			} else {
				assert.Nil(t, sale.ReserveDate)
			}

			stored, err := vehicleRepo.GetByID(context.Background(), vehicle.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVehicle, stored.Status)
			assert.Equal(t, int64(2), stored.Version, "status write must bump the version")
		})
	}
}

func TestSaleService_Create_UnknownClient(t *testing.T) {
	svc, _, vehicleRepo, _ := newSaleFixture()
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	_, err := svc.Create(context.Background(), CreateSaleInput{
		ClientID:  42,
		VehicleID: vehicle.ID,
		Status:    domain.SaleReserved,
	})
	require.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestSaleService_Update_StatusTransitions(t *testing.T) {
	tests := []struct {
		name          string
		from          domain.SaleStatus
		to            domain.SaleStatus
		vehicleStatus domain.VehicleStatus
		wantErr       error
		wantVehicle   domain.VehicleStatus
	}{
		{
			name:          "complete reserved sale",
			from:          domain.SaleReserved,
			to:            domain.SaleSold,
			vehicleStatus: domain.VehicleReserved,
			wantVehicle:   domain.VehicleSold,
		},
		{
			name:          "cancel reserved sale",
			from:          domain.SaleReserved,
			to:            domain.SaleCanceled,
			vehicleStatus: domain.VehicleReserved,
			wantVehicle:   domain.VehicleAvailable,
		},
		{
			name:          "cancel completed sale",
			from:          domain.SaleSold,
			to:            domain.SaleCanceled,
			vehicleStatus: domain.VehicleSold,
			wantVehicle:   domain.VehicleAvailable,
		},
		{
			name:          "sold back to reserved rejected",
			from:          domain.SaleSold,
			to:            domain.SaleReserved,
			vehicleStatus: domain.VehicleSold,
			wantErr:       domain.ErrInvalidStatusTransition,
		},
		{
			name:          "canceled is terminal",
			from:          domain.SaleCanceled,
			to:            domain.SaleReserved,
			vehicleStatus: domain.VehicleAvailable,
			wantErr:       domain.ErrInvalidStatusTransition,
		},
		{
			name:          "same status is a no-op",
			from:          domain.SaleReserved,
			to:            domain.SaleReserved,
			vehicleStatus: domain.VehicleReserved,
			wantVehicle:   domain.VehicleReserved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, saleRepo, vehicleRepo, clientRepo := newSaleFixture()
			client := clientRepo.Add(&domain.Client{FirstName: "Ana", Email: "ana@example.com"})
			vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: tt.vehicleStatus})
			seed := domain.NewSale(client.ID, vehicle.ID, domain.SaleReserved)
			seed.Status = tt.from
			if tt.from != domain.SaleReserved {
				seed.ReserveDate = nil
			}
			saleRepo.Add(seed)

			sale, err := svc.Update(context.Background(), UpdateSaleInput{
				ID:        seed.ID,
				ClientID:  client.ID,
				VehicleID: vehicle.ID,
				Status:    tt.to,
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				stored, _ := saleRepo.GetByID(context.Background(), seed.ID)
				assert.Equal(t, tt.from, stored.Status, "sale must be untouched")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, sale.Status)

			storedVehicle, err := vehicleRepo.GetByID(context.Background(), vehicle.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVehicle, storedVehicle.Status)
		})
	}
}

func TestSaleService_Update_VehicleSwap(t *testing.T) {
	svc, saleRepo, vehicleRepo, clientRepo := newSaleFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Ana", Email: "ana@example.com"})
	oldVehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "OLD111111", Status: domain.VehicleReserved})
	newVehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "NEW222222", Status: domain.VehicleAvailable})
	sale := saleRepo.Add(domain.NewSale(client.ID, oldVehicle.ID, domain.SaleReserved))

	updated, err := svc.Update(context.Background(), UpdateSaleInput{
		ID:        sale.ID,
		ClientID:  client.ID,
		VehicleID: newVehicle.ID,
		Status:    domain.SaleReserved,
	})
	require.NoError(t, err)
	assert.Equal(t, newVehicle.ID, updated.VehicleID)

	released, _ := vehicleRepo.GetByID(context.Background(), oldVehicle.ID)
	assert.Equal(t, domain.VehicleAvailable, released.Status, "old vehicle must be released")

	occupied, _ := vehicleRepo.GetByID(context.Background(), newVehicle.ID)
	assert.Equal(t, domain.VehicleReserved, occupied.Status, "new vehicle must be taken")
}

func TestSaleService_Update_VehicleSwapToBusyVehicle(t *testing.T) {
	svc, saleRepo, vehicleRepo, clientRepo := newSaleFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Ana", Email: "ana@example.com"})
	oldVehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "OLD111111", Status: domain.VehicleReserved})
	busyVehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "BUSY33333", Status: domain.VehicleSold})
	sale := saleRepo.Add(domain.NewSale(client.ID, oldVehicle.ID, domain.SaleReserved))

	_, err := svc.Update(context.Background(), UpdateSaleInput{
		ID:        sale.ID,
		ClientID:  client.ID,
		VehicleID: busyVehicle.ID,
		Status:    domain.SaleReserved,
	})
	require.ErrorIs(t, err, domain.ErrVehicleNotAvailable)

	// Neither vehicle moved.
	old, _ := vehicleRepo.GetByID(context.Background(), oldVehicle.ID)
	assert.Equal(t, domain.VehicleReserved, old.Status)
	busy, _ := vehicleRepo.GetByID(context.Background(), busyVehicle.ID)
	assert.Equal(t, domain.VehicleSold, busy.Status)
}

func TestSaleService_Update_VersionConflict(t *testing.T) {
	svc, saleRepo, vehicleRepo, clientRepo := newSaleFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Ana", Email: "ana@example.com"})
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleReserved, Version: 7})
	sale := saleRepo.Add(domain.NewSale(client.ID, vehicle.ID, domain.SaleReserved))

	// A concurrent writer moved the row between our read and write.
	vehicleRepo.updateErr = domain.ErrVersionConflict

	_, err := svc.Update(context.Background(), UpdateSaleInput{
		ID:        sale.ID,
		ClientID:  client.ID,
		VehicleID: vehicle.ID,
		Status:    domain.SaleSold,
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

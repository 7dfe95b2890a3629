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

func newFinancingFixture() (*FinancingService, *MockFinancingRepository, *MockVehicleRepository, *MockClientRepository) {
	financingRepo := NewMockFinancingRepository()
	vehicleRepo := NewMockVehicleRepository()
	clientRepo := NewMockClientRepository()
	svc := NewFinancingService(
		financingRepo, vehicleRepo, clientRepo,
		mockTxManager{}, lock.NewNoOpLocker(), nil, nil, zerolog.Nop(),
	)
	return svc, financingRepo, vehicleRepo, clientRepo
}

func validTerms() FinancingTerms {
	return FinancingTerms{
		TotalAmount:          5_000_000,
		DownPayment:          1_000_000,
		InstallmentCount:     48,
		InstallmentValue:     95_000,
		AnnualInterestRate:   12.5,
		FirstInstallmentDate: time.Now().UTC().AddDate(0, 1, 0),
	}
}

func TestFinancingService_Create(t *testing.T) {
	svc, _, vehicleRepo, clientRepo := newFinancingFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	financing, err := svc.Create(context.Background(), CreateFinancingInput{
		ClientID:  client.ID,
		VehicleID: vehicle.ID,
		Terms:     validTerms(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FinancingDraft, financing.Status)
	assert.False(t, financing.ContractDate.IsZero(), "contract date defaults to now")

	// The contract takes the vehicle as SOLD from creation.
	stored, err := vehicleRepo.GetByID(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleSold, stored.Status)
}

func TestFinancingService_Create_SecondContractRejected(t *testing.T) {
	svc, _, vehicleRepo, clientRepo := newFinancingFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	_, err := svc.Create(context.Background(), CreateFinancingInput{
		ClientID: client.ID, VehicleID: vehicle.ID, Terms: validTerms(),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateFinancingInput{
		ClientID: client.ID, VehicleID: vehicle.ID, Terms: validTerms(),
	})
	require.ErrorIs(t, err, domain.ErrFinancingActiveExists)
}

func TestFinancingService_Create_InvalidTerms(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FinancingTerms)
	}{
		{"zero total", func(terms *FinancingTerms) { terms.TotalAmount = 0 }},
		{"down payment above total", func(terms *FinancingTerms) { terms.DownPayment = terms.TotalAmount + 1 }},
		{"zero installments", func(terms *FinancingTerms) { terms.InstallmentCount = 0 }},
		{"negative interest", func(terms *FinancingTerms) { terms.AnnualInterestRate = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, vehicleRepo, clientRepo := newFinancingFixture()
			client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
			vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

			terms := validTerms()
			tt.mutate(&terms)

			_, err := svc.Create(context.Background(), CreateFinancingInput{
				ClientID: client.ID, VehicleID: vehicle.ID, Terms: terms,
			})
			require.ErrorIs(t, err, domain.ErrValidation)

			stored, _ := vehicleRepo.GetByID(context.Background(), vehicle.ID)
			assert.Equal(t, domain.VehicleAvailable, stored.Status, "vehicle must be untouched")
		})
	}
}

func TestFinancingService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name        string
		from        domain.FinancingStatus
		to          domain.FinancingStatus
		wantErr     error
		wantVehicle domain.VehicleStatus
	}{
		{
			name:        "activate draft",
			from:        domain.FinancingDraft,
			to:          domain.FinancingActive,
			wantVehicle: domain.VehicleSold,
		},
		{
			name:        "cancel draft releases vehicle",
			from:        domain.FinancingDraft,
			to:          domain.FinancingCanceled,
			wantVehicle: domain.VehicleAvailable,
		},
		{
			name:        "cancel active releases vehicle",
			from:        domain.FinancingActive,
			to:          domain.FinancingCanceled,
			wantVehicle: domain.VehicleAvailable,
		},
		{
			name:    "active back to draft rejected",
			from:    domain.FinancingActive,
			to:      domain.FinancingDraft,
			wantErr: domain.ErrInvalidStatusTransition,
		},
		{
			name:    "canceled is terminal",
			from:    domain.FinancingCanceled,
			to:      domain.FinancingActive,
			wantErr: domain.ErrInvalidStatusTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, financingRepo, vehicleRepo, clientRepo := newFinancingFixture()
			client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
			vehicleStatus := domain.VehicleSold
			if tt.from == domain.FinancingCanceled {
				vehicleStatus = domain.VehicleAvailable
			}
			vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: vehicleStatus})
			contract := financingRepo.Add(&domain.Financing{
				ClientID:  client.ID,
				VehicleID: vehicle.ID,
				Status:    tt.from,
			})

			financing, err := svc.UpdateStatus(context.Background(), contract.ID, tt.to)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				stored, _ := financingRepo.GetByID(context.Background(), contract.ID)
				assert.Equal(t, tt.from, stored.Status, "contract must be untouched")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, financing.Status)

			storedVehicle, _ := vehicleRepo.GetByID(context.Background(), vehicle.ID)
			assert.Equal(t, tt.wantVehicle, storedVehicle.Status)
		})
	}
}

func TestFinancingService_UpdateStatus_UnknownStatus(t *testing.T) {
	svc, _, _, _ := newFinancingFixture()
	_, err := svc.UpdateStatus(context.Background(), 1, domain.FinancingStatus("FROZEN"))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestFinancingService_Update_VehicleSwap(t *testing.T) {
	svc, financingRepo, vehicleRepo, clientRepo := newFinancingFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
	oldVehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "OLD111111", Status: domain.VehicleSold})
	newVehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "NEW222222", Status: domain.VehicleAvailable})
	contract := financingRepo.Add(&domain.Financing{
		ClientID:         client.ID,
		VehicleID:        oldVehicle.ID,
		TotalAmount:      5_000_000,
		InstallmentCount: 48,
		InstallmentValue: 95_000,
		ContractDate:     time.Now().UTC(),
		Status:           domain.FinancingActive,
	})

	updated, err := svc.Update(context.Background(), UpdateFinancingInput{
		ID:        contract.ID,
		ClientID:  client.ID,
		VehicleID: newVehicle.ID,
		Terms:     validTerms(),
	})
	require.NoError(t, err)
	assert.Equal(t, newVehicle.ID, updated.VehicleID)

	released, _ := vehicleRepo.GetByID(context.Background(), oldVehicle.ID)
	assert.Equal(t, domain.VehicleAvailable, released.Status, "old vehicle must be released")

	occupied, _ := vehicleRepo.GetByID(context.Background(), newVehicle.ID)
	assert.Equal(t, domain.VehicleSold, occupied.Status, "new vehicle must be taken as SOLD")
}

func TestFinancingService_Update_SwapToFinancedVehicleRejected(t *testing.T) {
	svc, financingRepo, vehicleRepo, clientRepo := newFinancingFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
	vehicleA := vehicleRepo.Add(&domain.Vehicle{Chassis: "AAA111111", Status: domain.VehicleSold})
	vehicleB := vehicleRepo.Add(&domain.Vehicle{Chassis: "BBB222222", Status: domain.VehicleSold})
	contract := financingRepo.Add(&domain.Financing{
		ClientID: client.ID, VehicleID: vehicleA.ID, Status: domain.FinancingActive,
	})
	financingRepo.Add(&domain.Financing{
		ClientID: client.ID, VehicleID: vehicleB.ID, Status: domain.FinancingActive,
	})

	_, err := svc.Update(context.Background(), UpdateFinancingInput{
		ID:        contract.ID,
		ClientID:  client.ID,
		VehicleID: vehicleB.ID,
		Terms:     validTerms(),
	})
	require.ErrorIs(t, err, domain.ErrFinancingActiveExists)
}

func TestFinancingService_FindActiveByVehicle(t *testing.T) {
	svc, financingRepo, vehicleRepo, clientRepo := newFinancingFixture()
	client := clientRepo.Add(&domain.Client{FirstName: "Bruno", Email: "bruno@example.com"})
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleSold})

	// A canceled contract must not count as active.
	financingRepo.Add(&domain.Financing{
		ClientID: client.ID, VehicleID: vehicle.ID, Status: domain.FinancingCanceled,
	})
	_, err := svc.FindActiveByVehicle(context.Background(), vehicle.ID)
	require.ErrorIs(t, err, domain.ErrFinancingNotFound)

	active := financingRepo.Add(&domain.Financing{
		ClientID: client.ID, VehicleID: vehicle.ID, Status: domain.FinancingActive,
	})
	found, err := svc.FindActiveByVehicle(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)
}

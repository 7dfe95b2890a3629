package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
)

func TestVehicleService_Create(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateVehicleInput
		wantErr error
	}{
		{
			name: "success",
			input: CreateVehicleInput{
				Brand:     "Volkswagen",
				Model:     "Golf",
				ModelYear: 2022,
				Chassis:   "9bwzzz377vt004251",
				Price:     8_990_000,
			},
		},
		{
			name: "missing brand",
			input: CreateVehicleInput{
				Model:     "Golf",
				ModelYear: 2022,
				Chassis:   "9BWZZZ377VT004251",
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "model year too old",
			input: CreateVehicleInput{
				Brand:     "Volkswagen",
				Model:     "Golf",
				ModelYear: 1850,
				Chassis:   "9BWZZZ377VT004251",
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "negative price",
			input: CreateVehicleInput{
				Brand:     "Volkswagen",
				Model:     "Golf",
				ModelYear: 2022,
				Chassis:   "9BWZZZ377VT004251",
				Price:     -1,
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockVehicleRepository()
			svc := NewVehicleService(repo, nil, zerolog.Nop())

			vehicle, err := svc.Create(context.Background(), tt.input)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.VehicleAvailable, vehicle.Status)
			assert.Equal(t, int64(1), vehicle.Version)
			assert.Equal(t, "9BWZZZ377VT004251", vehicle.Chassis, "chassis is normalized to uppercase")
		})
	}
}

func TestVehicleService_Create_DuplicateChassis(t *testing.T) {
	repo := NewMockVehicleRepository()
	svc := NewVehicleService(repo, nil, zerolog.Nop())

	input := CreateVehicleInput{
		Brand: "Volkswagen", Model: "Golf", ModelYear: 2022, Chassis: "9BWZZZ377VT004251",
	}
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	input.Model = "Polo"
	_, err = svc.Create(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrChassisTaken)
}

func TestVehicleService_Update_KeepsOwnChassis(t *testing.T) {
	repo := NewMockVehicleRepository()
	svc := NewVehicleService(repo, nil, zerolog.Nop())
	vehicle := repo.Add(&domain.Vehicle{
		Brand: "Volkswagen", Model: "Golf", ModelYear: 2022,
		Chassis: "9BWZZZ377VT004251", Status: domain.VehicleReserved, Version: 3,
	})

	updated, err := svc.Update(context.Background(), UpdateVehicleInput{
		ID: vehicle.ID,
		CreateVehicleInput: CreateVehicleInput{
			Brand: "Volkswagen", Model: "Golf GTI", ModelYear: 2022,
			Chassis: "9BWZZZ377VT004251", Price: 12_990_000,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Golf GTI", updated.Model)

	// Descriptive updates never touch status or version.
	stored, err := repo.GetByID(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleReserved, stored.Status)
	assert.Equal(t, int64(3), stored.Version)
}

func TestVehicleService_Update_ChassisCollision(t *testing.T) {
	repo := NewMockVehicleRepository()
	svc := NewVehicleService(repo, nil, zerolog.Nop())
	repo.Add(&domain.Vehicle{
		Brand: "VW", Model: "Golf", ModelYear: 2022, Chassis: "AAA1111111111",
	})
	victim := repo.Add(&domain.Vehicle{
		Brand: "VW", Model: "Polo", ModelYear: 2021, Chassis: "BBB2222222222",
	})

	_, err := svc.Update(context.Background(), UpdateVehicleInput{
		ID: victim.ID,
		CreateVehicleInput: CreateVehicleInput{
			Brand: "VW", Model: "Polo", ModelYear: 2021, Chassis: "AAA1111111111",
		},
	})
	require.ErrorIs(t, err, domain.ErrChassisTaken)
}

func TestVehicleService_Delete(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.VehicleStatus
		wantErr error
	}{
		{"available vehicle", domain.VehicleAvailable, nil},
		{"reserved vehicle", domain.VehicleReserved, domain.ErrVehicleNotAvailable},
		{"sold vehicle", domain.VehicleSold, domain.ErrVehicleNotAvailable},
		{"vehicle in maintenance", domain.VehicleMaintenance, domain.ErrVehicleNotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockVehicleRepository()
			svc := NewVehicleService(repo, nil, zerolog.Nop())
			vehicle := repo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: tt.status})

			err := svc.Delete(context.Background(), vehicle.ID)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				_, getErr := repo.GetByID(context.Background(), vehicle.ID)
				require.NoError(t, getErr, "vehicle must still exist")
				return
			}

			require.NoError(t, err)
			_, getErr := repo.GetByID(context.Background(), vehicle.ID)
			require.ErrorIs(t, getErr, domain.ErrVehicleNotFound)
		})
	}
}

func TestVehicleService_Search(t *testing.T) {
	repo := NewMockVehicleRepository()
	svc := NewVehicleService(repo, nil, zerolog.Nop())
	repo.Add(&domain.Vehicle{Brand: "VW", Model: "Golf", Chassis: "A1", Status: domain.VehicleAvailable, Price: 100})
	repo.Add(&domain.Vehicle{Brand: "VW", Model: "Polo", Chassis: "A2", Status: domain.VehicleSold, Price: 80})
	repo.Add(&domain.Vehicle{Brand: "Fiat", Model: "Argo", Chassis: "A3", Status: domain.VehicleAvailable, Price: 60})

	result, err := svc.Search(context.Background(), SearchVehiclesInput{
		Filter: domain.VehicleFilter{Brand: "VW", Status: domain.VehicleAvailable},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Golf", result.Items[0].Model)
}

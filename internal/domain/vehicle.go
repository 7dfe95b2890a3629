// Package domain contains the core business entities for the Meridian
// dealership back office.
package domain

import (
	"strings"
	"time"
)

// VehicleStatus is the lifecycle status of a vehicle on the lot.
type VehicleStatus string

const (
	// VehicleAvailable means the vehicle can be reserved, sold or sent to the shop.
	VehicleAvailable VehicleStatus = "AVAILABLE"

	// VehicleReserved means an open sale holds the vehicle.
	VehicleReserved VehicleStatus = "RESERVED"

	// VehicleSold means a completed sale or a financing contract holds the vehicle.
	VehicleSold VehicleStatus = "SOLD"

	// VehicleMaintenance means an open maintenance record holds the vehicle.
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
)

// FuelType enumerates supported fuel types.
type FuelType string

const (
	FuelGasoline FuelType = "GASOLINE"
	FuelDiesel   FuelType = "DIESEL"
	FuelFlex     FuelType = "FLEX"
	FuelElectric FuelType = "ELECTRIC"
	FuelHybrid   FuelType = "HYBRID"
)

// TransmissionType enumerates supported transmissions.
type TransmissionType string

const (
	TransmissionManual    TransmissionType = "MANUAL"
	TransmissionAutomatic TransmissionType = "AUTOMATIC"
	TransmissionCVT       TransmissionType = "CVT"
)

// Vehicle is the aggregation root for lot status. Sale, Financing and
// Maintenance records request status changes through the transition table in
// transition.go but never write Status directly.
type Vehicle struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// Brand is the manufacturer name.
	Brand string `json:"brand"`

	// Model is the commercial model name.
	Model string `json:"model"`

	// ModelYear is the model year.
	ModelYear int `json:"model_year"`

	// Chassis is the chassis (VIN) number. Globally unique.
	Chassis string `json:"chassis"`

	// Plate is the license plate, if the vehicle is registered.
	Plate string `json:"plate"`

	// Color is the exterior color.
	Color string `json:"color"`

	// Mileage is the odometer reading in kilometers.
	Mileage int64 `json:"mileage"`

	// Price is the asking price in cents.
	Price int64 `json:"price"`

	// Fuel is the fuel type.
	Fuel FuelType `json:"fuel"`

	// Transmission is the transmission type.
	Transmission TransmissionType `json:"transmission"`

	// Doors is the door count.
	Doors int `json:"doors"`

	// Motor is the engine description (e.g. "2.0 16v").
	Motor string `json:"motor"`

	// Power is the power description (e.g. "150cv").
	Power string `json:"power"`

	// Status is the lifecycle status. Always consistent with the most recent
	// lifecycle event applied to the vehicle.
	Status VehicleStatus `json:"status"`

	// Version is the optimistic concurrency token. Incremented on every
	// status write; a conditional update that misses the expected version
	// fails with ErrVersionConflict.
	Version int64 `json:"version"`

	// CreatedAt is the timestamp when the vehicle was registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last modification.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewVehicle creates a Vehicle in the initial AVAILABLE status.
func NewVehicle(brand, model, chassis string, modelYear int) *Vehicle {
	now := time.Now().UTC()
	return &Vehicle{
		Brand:     brand,
		Model:     model,
		ModelYear: modelYear,
		Chassis:   strings.ToUpper(strings.TrimSpace(chassis)),
		Status:    VehicleAvailable,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAvailable reports whether the vehicle can be taken by a new lifecycle record.
func (v *Vehicle) IsAvailable() bool {
	return v.Status == VehicleAvailable
}

// Validate checks required fields.
func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.Brand) == "" {
		return NewDomainError(ErrValidation, "brand is required", "")
	}
	if strings.TrimSpace(v.Model) == "" {
		return NewDomainError(ErrValidation, "model is required", "")
	}
	if strings.TrimSpace(v.Chassis) == "" {
		return NewDomainError(ErrValidation, "chassis is required", "")
	}
	if v.ModelYear < 1900 {
		return NewDomainError(ErrValidation, "model_year is invalid", v.Chassis)
	}
	if v.Price < 0 {
		return NewDomainError(ErrValidation, "price cannot be negative", v.Chassis)
	}
	return nil
}

// VehicleFilter restricts vehicle searches. Zero values are ignored.
type VehicleFilter struct {
	Brand  string
	Model  string
	Status VehicleStatus
	// MaxPrice filters vehicles at or below the price (cents). 0 = no limit.
	MaxPrice int64
}

package domain

import "time"

// Maintenance is a shop record for one vehicle. While EndDate is nil the
// record is open and the owning vehicle's status must be MAINTENANCE.
// Closing is a soft operation: EndDate is set and the row is kept so the
// per-vehicle history survives.
type Maintenance struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// VehicleID references the vehicle in the shop.
	VehicleID int64 `json:"vehicle_id"`

	// AdditionalInfo is free-form shop notes.
	AdditionalInfo string `json:"additional_info"`

	// StartDate is set when the record is opened.
	StartDate time.Time `json:"start_date"`

	// EndDate is set when the record is closed; nil while open.
	EndDate *time.Time `json:"end_date,omitempty"`
}

// NewMaintenance opens a maintenance record.
func NewMaintenance(vehicleID int64, additionalInfo string) *Maintenance {
	return &Maintenance{
		VehicleID:      vehicleID,
		AdditionalInfo: additionalInfo,
		StartDate:      time.Now().UTC(),
	}
}

// IsOpen reports whether the record still holds the vehicle.
func (m *Maintenance) IsOpen() bool {
	return m.EndDate == nil
}

// Close sets the end date, leaving the start date untouched.
func (m *Maintenance) Close(now time.Time) error {
	if m.EndDate != nil {
		return NewDomainError(ErrMaintenanceAlreadyClosed, "", "")
	}
	t := now
	m.EndDate = &t
	return nil
}

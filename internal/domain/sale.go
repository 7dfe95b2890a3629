package domain

import (
	"fmt"
	"time"
)

// SaleStatus is the lifecycle status of a sale.
type SaleStatus string

const (
	// SaleReserved means the client holds the vehicle but the sale has not closed.
	SaleReserved SaleStatus = "RESERVED"

	// SaleSold means the sale has closed.
	SaleSold SaleStatus = "SOLD"

	// SaleCanceled is terminal; canceled sales are never re-opened.
	SaleCanceled SaleStatus = "CANCELED"
)

// saleTransitions lists the statuses a sale may move to from each status.
// Staying on the same non-terminal status is an allowed no-op; nothing moves
// out of CANCELED.
var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleReserved: {SaleReserved, SaleSold, SaleCanceled},
	SaleSold:     {SaleSold, SaleCanceled},
	SaleCanceled: {},
}

// SaleStatusValid reports whether s is a known sale status.
func SaleStatusValid(s SaleStatus) bool {
	switch s {
	case SaleReserved, SaleSold, SaleCanceled:
		return true
	}
	return false
}

// CanTransitionSale reports whether a sale may move from one status to another.
func CanTransitionSale(from, to SaleStatus) bool {
	for _, allowed := range saleTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Sale references exactly one client and one vehicle.
type Sale struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// ClientID references the buying client.
	ClientID int64 `json:"client_id"`

	// VehicleID references the vehicle being sold.
	VehicleID int64 `json:"vehicle_id"`

	// Status is the sale lifecycle status.
	Status SaleStatus `json:"status"`

	// SalesDate is set when the sale is created.
	SalesDate time.Time `json:"sales_date"`

	// ReserveDate is set only while the sale is RESERVED.
	ReserveDate *time.Time `json:"reserve_date,omitempty"`

	// CreatedAt is the timestamp when the sale was persisted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last modification.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSale creates a sale in the requested status. The caller has already
// validated that the status is RESERVED or SOLD.
func NewSale(clientID, vehicleID int64, status SaleStatus) *Sale {
	now := time.Now().UTC()
	s := &Sale{
		ClientID:  clientID,
		VehicleID: vehicleID,
		Status:    status,
		SalesDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == SaleReserved {
		t := now
		s.ReserveDate = &t
	}
	return s
}

// ApplyStatus moves the sale to a new status, maintaining the reserve date.
// Returns ErrInvalidStatusTransition for disallowed moves.
func (s *Sale) ApplyStatus(to SaleStatus, now time.Time) error {
	if !CanTransitionSale(s.Status, to) {
		return NewDomainError(ErrInvalidStatusTransition,
			fmt.Sprintf("sale %s -> %s", s.Status, to),
			fmt.Sprintf("sale:%d", s.ID))
	}

	if s.Status != SaleReserved && to == SaleReserved && s.ReserveDate == nil {
		t := now
		s.ReserveDate = &t
	}
	if to != SaleReserved {
		s.ReserveDate = nil
	}

	s.Status = to
	s.UpdatedAt = now
	return nil
}

// VehicleEvent maps the sale status to the vehicle status event it implies.
func (s SaleStatus) VehicleEvent() StatusEvent {
	switch s {
	case SaleSold:
		return EventSaleCompleted
	case SaleCanceled:
		return EventVehicleReleased
	default:
		return EventSaleReserved
	}
}

package domain

import (
	"fmt"
	"time"
)

// FinancingStatus is the lifecycle status of a financing contract.
type FinancingStatus string

const (
	// FinancingDraft is the initial status while terms are negotiated.
	FinancingDraft FinancingStatus = "DRAFT"

	// FinancingActive means the contract is signed and installments run.
	FinancingActive FinancingStatus = "ACTIVE"

	// FinancingCanceled is terminal.
	FinancingCanceled FinancingStatus = "CANCELED"
)

// financingTransitions lists the statuses a contract may move to from each
// status. The original system had no guard here; the guarded table mirrors
// the sale table so both lifecycles behave consistently.
var financingTransitions = map[FinancingStatus][]FinancingStatus{
	FinancingDraft:    {FinancingDraft, FinancingActive, FinancingCanceled},
	FinancingActive:   {FinancingActive, FinancingCanceled},
	FinancingCanceled: {},
}

// FinancingStatusValid reports whether s is a known financing status.
func FinancingStatusValid(s FinancingStatus) bool {
	switch s {
	case FinancingDraft, FinancingActive, FinancingCanceled:
		return true
	}
	return false
}

// CanTransitionFinancing reports whether a contract may move between statuses.
func CanTransitionFinancing(from, to FinancingStatus) bool {
	for _, allowed := range financingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Financing is a financing contract for one client and one vehicle.
// Invariant: at most one non-CANCELED contract exists per vehicle.
type Financing struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// ClientID references the financed client.
	ClientID int64 `json:"client_id"`

	// VehicleID references the financed vehicle.
	VehicleID int64 `json:"vehicle_id"`

	// TotalAmount is the financed total in cents.
	TotalAmount int64 `json:"total_amount"`

	// DownPayment is the upfront payment in cents.
	DownPayment int64 `json:"down_payment"`

	// InstallmentCount is the number of installments.
	InstallmentCount int `json:"installment_count"`

	// InstallmentValue is the value of each installment in cents.
	InstallmentValue int64 `json:"installment_value"`

	// AnnualInterestRate is the yearly interest rate in percent.
	AnnualInterestRate float64 `json:"annual_interest_rate"`

	// ContractDate is the date the contract was drawn.
	ContractDate time.Time `json:"contract_date"`

	// FirstInstallmentDate is the due date of the first installment.
	FirstInstallmentDate time.Time `json:"first_installment_date"`

	// Status is the contract lifecycle status.
	Status FinancingStatus `json:"status"`

	// CreatedAt is set on persistence create.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is set on every persistence update.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the contract holds the vehicle.
func (f *Financing) IsActive() bool {
	return f.Status != FinancingCanceled
}

// ApplyStatus moves the contract to a new status.
func (f *Financing) ApplyStatus(to FinancingStatus, now time.Time) error {
	if !CanTransitionFinancing(f.Status, to) {
		return NewDomainError(ErrInvalidStatusTransition,
			fmt.Sprintf("financing %s -> %s", f.Status, to),
			fmt.Sprintf("financing:%d", f.ID))
	}

	f.Status = to
	f.UpdatedAt = now
	return nil
}

// Validate checks the monetary terms.
func (f *Financing) Validate() error {
	if f.TotalAmount <= 0 {
		return NewDomainError(ErrValidation, "total_amount must be positive", "")
	}
	if f.DownPayment < 0 || f.DownPayment > f.TotalAmount {
		return NewDomainError(ErrValidation, "down_payment out of range", "")
	}
	if f.InstallmentCount <= 0 {
		return NewDomainError(ErrValidation, "installment_count must be positive", "")
	}
	if f.InstallmentValue <= 0 {
		return NewDomainError(ErrValidation, "installment_value must be positive", "")
	}
	if f.AnnualInterestRate < 0 {
		return NewDomainError(ErrValidation, "annual_interest_rate cannot be negative", "")
	}
	return nil
}

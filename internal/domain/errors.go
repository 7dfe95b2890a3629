// Package domain contains the core business entities for the Meridian
// dealership back office.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Not Found Errors
	// ===========================================

	// ErrVehicleNotFound indicates the referenced vehicle does not exist.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrClientNotFound indicates the referenced client does not exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrSaleNotFound indicates the referenced sale does not exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrFinancingNotFound indicates the referenced financing contract does not exist.
	ErrFinancingNotFound = errors.New("financing not found")

	// ErrMaintenanceNotFound indicates the referenced maintenance record does not exist.
	ErrMaintenanceNotFound = errors.New("maintenance not found")

	// ErrAttachmentNotFound indicates the referenced file attachment does not exist.
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ===========================================
	// Lifecycle / State Errors
	// ===========================================

	// ErrVehicleNotAvailable indicates the vehicle is not in the AVAILABLE
	// status required by the requested operation.
	ErrVehicleNotAvailable = errors.New("vehicle is not available")

	// ErrInvalidStatusTransition indicates a disallowed status transition was
	// requested (sale, financing or vehicle status).
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrSaleAlreadyCanceled indicates an operation on a canceled sale.
	ErrSaleAlreadyCanceled = errors.New("sale is already canceled")

	// ErrFinancingActiveExists indicates the vehicle already has a
	// non-canceled financing contract.
	ErrFinancingActiveExists = errors.New("vehicle already has an active financing")

	// ErrMaintenanceAlreadyClosed indicates the maintenance record has an end date.
	ErrMaintenanceAlreadyClosed = errors.New("maintenance is already closed")

	// ErrVersionConflict indicates a concurrent update won the race for the
	// vehicle row. The caller should retry or surface a conflict.
	ErrVersionConflict = errors.New("vehicle was modified concurrently")

	// ===========================================
	// Uniqueness Errors
	// ===========================================

	// ErrChassisTaken indicates another vehicle already uses the chassis number.
	ErrChassisTaken = errors.New("chassis number already registered")

	// ErrEmailTaken indicates another client already uses the email address.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken indicates another user already uses the username.
	ErrUsernameTaken = errors.New("username already registered")

	// ===========================================
	// Validation / Auth Errors
	// ===========================================

	// ErrValidation indicates malformed or missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ===========================================
	// Storage Errors
	// ===========================================

	// ErrStorageWrite indicates a blob write or presign failure.
	// Propagated to the caller so the upload can be retried.
	ErrStorageWrite = errors.New("blob storage write failed")

	// ErrAttachmentNotOwned indicates the attachment belongs to a different
	// vehicle than the one named by the request.
	ErrAttachmentNotOwned = errors.New("attachment does not belong to vehicle")

	// ErrUploadNotPending indicates a confirm call for an attachment that is
	// not in the pending upload state.
	ErrUploadNotPending = errors.New("attachment upload is not pending")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., vehicle chassis, sale id).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// WrapError wraps an error with domain context if it's not already a DomainError.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	return &DomainError{
		Err:     err,
		Message: message,
	}
}

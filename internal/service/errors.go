// Package service provides business logic services for the Meridian back office.
package service

import "errors"

// Common service errors.
var (
	// ErrVehicleBusy indicates another lifecycle operation holds the vehicle
	// lock. Callers should retry.
	ErrVehicleBusy = errors.New("vehicle is busy, try again")

	// ErrInternalError wraps unexpected infrastructure failures.
	ErrInternalError = errors.New("internal server error")
)

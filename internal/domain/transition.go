package domain

import "fmt"

// StatusEvent is a lifecycle event that requests a vehicle status change.
// Sale, Financing and Maintenance services all funnel their side effects on
// the vehicle through Transition so the rules live in exactly one place.
type StatusEvent string

const (
	// EventSaleReserved is raised when a sale is created or kept in RESERVED.
	EventSaleReserved StatusEvent = "SALE_RESERVED"

	// EventSaleCompleted is raised when a sale is created in or moves to SOLD.
	EventSaleCompleted StatusEvent = "SALE_COMPLETED"

	// EventVehicleReleased is raised when the record holding the vehicle lets
	// go of it: a sale or financing is canceled, or a sale/financing is
	// re-pointed at a different vehicle.
	EventVehicleReleased StatusEvent = "VEHICLE_RELEASED"

	// EventFinancingOpened is raised when a financing contract is created or
	// re-pointed at the vehicle. Financing always holds the vehicle as SOLD.
	EventFinancingOpened StatusEvent = "FINANCING_OPENED"

	// EventMaintenanceOpened is raised when a maintenance record is opened.
	EventMaintenanceOpened StatusEvent = "MAINTENANCE_OPENED"

	// EventMaintenanceClosed is raised when a maintenance record is closed.
	EventMaintenanceClosed StatusEvent = "MAINTENANCE_CLOSED"
)

// allowedTransitions maps an event to the statuses it may be applied from and
// the status it produces. An event applied from a status that is absent from
// its map is rejected.
var allowedTransitions = map[StatusEvent]map[VehicleStatus]VehicleStatus{
	EventSaleReserved: {
		VehicleAvailable: VehicleReserved,
		// Updating a sale that stays RESERVED on the same vehicle is a no-op.
		VehicleReserved: VehicleReserved,
	},
	EventSaleCompleted: {
		VehicleAvailable: VehicleSold,
		VehicleReserved:  VehicleSold,
		VehicleSold:      VehicleSold,
	},
	EventVehicleReleased: {
		VehicleReserved: VehicleAvailable,
		VehicleSold:     VehicleAvailable,
		// Releasing an already-available vehicle happens when a financing is
		// canceled after its sale was canceled first.
		VehicleAvailable: VehicleAvailable,
	},
	EventFinancingOpened: {
		VehicleAvailable: VehicleSold,
		VehicleReserved:  VehicleSold,
		VehicleSold:      VehicleSold,
	},
	EventMaintenanceOpened: {
		VehicleAvailable: VehicleMaintenance,
	},
	EventMaintenanceClosed: {
		VehicleMaintenance: VehicleAvailable,
	},
}

// Transition returns the vehicle status produced by applying event to
// current, or ErrInvalidStatusTransition if the event is not admissible.
func Transition(current VehicleStatus, event StatusEvent) (VehicleStatus, error) {
	from, ok := allowedTransitions[event]
	if !ok {
		return "", NewDomainError(ErrInvalidStatusTransition,
			fmt.Sprintf("unknown event %s", event), string(current))
	}

	next, ok := from[current]
	if !ok {
		return "", NewDomainError(ErrInvalidStatusTransition,
			fmt.Sprintf("%s not allowed from %s", event, current), string(current))
	}

	return next, nil
}

// CanApply reports whether event is admissible from current.
func CanApply(current VehicleStatus, event StatusEvent) bool {
	_, err := Transition(current, event)
	return err == nil
}

// Apply mutates the vehicle to the status produced by event and bumps the
// optimistic version. Callers persist the vehicle with a version-conditional
// update afterwards.
func Apply(v *Vehicle, event StatusEvent) error {
	if v == nil {
		return NewDomainError(ErrValidation, "vehicle is nil", "")
	}

	next, err := Transition(v.Status, event)
	if err != nil {
		return err
	}

	v.Status = next
	v.Version++
	return nil
}

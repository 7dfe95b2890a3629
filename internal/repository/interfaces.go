// Package repository defines data access interfaces for the Meridian back
// office. These interfaces abstract database operations, allowing for
// different implementations (PostgreSQL, SQLite, in-memory for testing)
// while keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
)

// =============================================================================
// Vehicle Repository
// =============================================================================

// VehicleRepository defines the interface for vehicle data access.
// The vehicle row is the central point of contention across the sale,
// financing and maintenance lifecycles; every status write goes through
// UpdateStatus with an optimistic version check.
type VehicleRepository interface {
	// Create creates a new vehicle.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)

	// GetByChassis retrieves a vehicle by chassis number.
	GetByChassis(ctx context.Context, chassis string) (*domain.Vehicle, error)

	// Search returns vehicles matching the filter with pagination.
	Search(ctx context.Context, filter domain.VehicleFilter, opts ListOptions) (*ListResult[domain.Vehicle], error)

	// Update updates descriptive attributes of an existing vehicle.
	// Status and Version are not touched; use UpdateStatus.
	Update(ctx context.Context, vehicle *domain.Vehicle) error

	// UpdateStatus writes the vehicle status conditionally: the row is only
	// updated when its stored version equals expectedVersion, and the stored
	// version is incremented. Returns domain.ErrVersionConflict when a
	// concurrent writer got there first.
	UpdateStatus(ctx context.Context, id int64, status domain.VehicleStatus, expectedVersion int64) error

	// Delete deletes a vehicle by ID.
	Delete(ctx context.Context, id int64) error

	// ExistsByChassis checks whether a vehicle other than excludeID uses the
	// chassis number. Pass excludeID = 0 for creation checks.
	ExistsByChassis(ctx context.Context, chassis string, excludeID int64) (bool, error)
}

// =============================================================================
// Client Repository
// =============================================================================

// ClientRepository defines the interface for client data access.
type ClientRepository interface {
	// Create creates a new client.
	Create(ctx context.Context, client *domain.Client) error

	// GetByID retrieves a client by ID.
	GetByID(ctx context.Context, id int64) (*domain.Client, error)

	// GetByEmail retrieves a client by email.
	GetByEmail(ctx context.Context, email string) (*domain.Client, error)

	// List returns all clients with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Client], error)

	// Update updates an existing client.
	Update(ctx context.Context, client *domain.Client) error

	// Delete deletes a client by ID.
	Delete(ctx context.Context, id int64) error

	// ExistsByEmail checks whether a client other than excludeID uses the
	// email address. Pass excludeID = 0 for creation checks.
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
}

// =============================================================================
// Sale Repository
// =============================================================================

// SaleRepository defines the interface for sale data access.
type SaleRepository interface {
	// Create creates a new sale.
	Create(ctx context.Context, sale *domain.Sale) error

	// GetByID retrieves a sale by ID.
	GetByID(ctx context.Context, id int64) (*domain.Sale, error)

	// List returns all sales with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Sale], error)

	// ListByVehicle returns all sales referencing the vehicle.
	ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Sale, error)

	// Update updates an existing sale.
	Update(ctx context.Context, sale *domain.Sale) error
}

// =============================================================================
// Financing Repository
// =============================================================================

// FinancingRepository defines the interface for financing contract data access.
type FinancingRepository interface {
	// Create creates a new financing contract.
	Create(ctx context.Context, financing *domain.Financing) error

	// GetByID retrieves a financing contract by ID.
	GetByID(ctx context.Context, id int64) (*domain.Financing, error)

	// List returns all financing contracts with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Financing], error)

	// ListByVehicle returns all financing contracts referencing the vehicle.
	ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Financing, error)

	// FindActiveByVehicle returns the non-CANCELED contract for the vehicle.
	// Returns domain.ErrFinancingNotFound when there is none.
	FindActiveByVehicle(ctx context.Context, vehicleID int64) (*domain.Financing, error)

	// Update updates an existing financing contract.
	Update(ctx context.Context, financing *domain.Financing) error
}

// =============================================================================
// Maintenance Repository
// =============================================================================

// MaintenanceRepository defines the interface for maintenance data access.
// Closing a maintenance is a soft operation (end date set, row kept) so
// ListByVehicle doubles as shop history.
type MaintenanceRepository interface {
	// Create creates a new maintenance record.
	Create(ctx context.Context, maintenance *domain.Maintenance) error

	// GetByID retrieves a maintenance record by ID.
	GetByID(ctx context.Context, id int64) (*domain.Maintenance, error)

	// List returns all maintenance records with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Maintenance], error)

	// ListByVehicle returns the maintenance history of the vehicle.
	ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Maintenance, error)

	// FindOpenByVehicle returns the open record (end date null) for the
	// vehicle. Returns domain.ErrMaintenanceNotFound when there is none.
	FindOpenByVehicle(ctx context.Context, vehicleID int64) (*domain.Maintenance, error)

	// Update updates an existing maintenance record.
	Update(ctx context.Context, maintenance *domain.Maintenance) error
}

// =============================================================================
// Attachment Repository
// =============================================================================

// AttachmentRepository defines the interface for file attachment metadata.
type AttachmentRepository interface {
	// Create creates a new attachment row.
	Create(ctx context.Context, attachment *domain.Attachment) error

	// GetByID retrieves an attachment by ID.
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)

	// ListByVehicle returns all attachments of the vehicle.
	ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Attachment, error)

	// UpdateUploadStatus updates the two-phase upload state of a row.
	UpdateUploadStatus(ctx context.Context, id int64, status domain.UploadStatus) error

	// Delete deletes an attachment row by ID.
	Delete(ctx context.Context, id int64) error

	// ListStalePending returns pending rows created before the cutoff.
	// Used by the pending-upload sweeper.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Attachment, error)
}

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// ExistsByUsername checks whether a user other than excludeID uses the
	// username. Pass excludeID = 0 for creation checks.
	ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int

	// OrderBy specifies the sort order.
	OrderBy string

	// Descending specifies descending order if true.
	Descending bool
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}

// =============================================================================
// Transaction Support
// =============================================================================

// TxManager defines the interface for transaction management.
// Lifecycle operations persist the satellite record and the vehicle status
// inside one transaction.
type TxManager interface {
	// WithTx executes the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Package repository provides the data access layer for the Meridian back office.
// Driver packages (sqlite, postgres) provide the concrete implementations;
// main wires them according to config.DatabaseConfig.Driver.
package repository

import "context"

// Repositories holds all repository instances.
type Repositories struct {
	Vehicle     VehicleRepository
	Client      ClientRepository
	Sale        SaleRepository
	Financing   FinancingRepository
	Maintenance MaintenanceRepository
	Attachment  AttachmentRepository
	User        UserRepository
	Tx          TxManager
}

// DatabaseHealth is an interface for database health checks.
// Satisfied by both driver packages' DB types; used by the health endpoint.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

package sqlite

import (
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// NewRepositories assembles the full repository set over one SQLite database.
// The DB itself serves as the transaction manager: repositories called inside
// WithTx pick the transaction up from the context.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		Vehicle:     NewVehicleRepository(db),
		Client:      NewClientRepository(db),
		Sale:        NewSaleRepository(db),
		Financing:   NewFinancingRepository(db),
		Maintenance: NewMaintenanceRepository(db),
		Attachment:  NewAttachmentRepository(db),
		User:        NewUserRepository(db),
		Tx:          db,
	}
}

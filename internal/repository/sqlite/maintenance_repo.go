package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// maintenanceRepository implements repository.MaintenanceRepository for SQLite.
type maintenanceRepository struct {
	db *DB
}

// NewMaintenanceRepository creates a new SQLite maintenance repository.
func NewMaintenanceRepository(db *DB) repository.MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

// Create creates a new maintenance record.
func (r *maintenanceRepository) Create(ctx context.Context, maintenance *domain.Maintenance) error {
	query := `
		INSERT INTO maintenances (vehicle_id, additional_info, start_date, end_date)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		maintenance.VehicleID,
		maintenance.AdditionalInfo,
		maintenance.StartDate.Format(time.RFC3339),
		nullableTime(maintenance.EndDate),
	)

	if err != nil {
		if isUniqueViolation(err) {
			// Partial unique index on open records per vehicle.
			return fmt.Errorf("%w: vehicle %d already has an open record", domain.ErrVehicleNotAvailable, maintenance.VehicleID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: vehicle does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("failed to create maintenance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	maintenance.ID = id

	return nil
}

// GetByID retrieves a maintenance record by ID.
func (r *maintenanceRepository) GetByID(ctx context.Context, id int64) (*domain.Maintenance, error) {
	query := `
		SELECT id, vehicle_id, additional_info, start_date, end_date
		FROM maintenances
		WHERE id = ?
	`

	maintenance, err := scanMaintenance(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrMaintenanceNotFound
		}
		return nil, fmt.Errorf("failed to get maintenance by ID: %w", err)
	}

	return maintenance, nil
}

// List returns all maintenance records with pagination.
func (r *maintenanceRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Maintenance], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenances`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count maintenances: %w", err)
	}

	query := `
		SELECT id, vehicle_id, additional_info, start_date, end_date
		FROM maintenances` +
		orderClause(opts, map[string]string{"start_date": "start_date"}, "id") + `
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenances: %w", err)
	}
	defer rows.Close()

	items, err := collectMaintenances(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Maintenance]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  normalizeLimit(opts.Limit),
	}, nil
}

// ListByVehicle returns the maintenance history of the vehicle.
func (r *maintenanceRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Maintenance, error) {
	query := `
		SELECT id, vehicle_id, additional_info, start_date, end_date
		FROM maintenances
		WHERE vehicle_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenances by vehicle: %w", err)
	}
	defer rows.Close()

	items, err := collectMaintenances(rows)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindOpenByVehicle returns the open record for the vehicle.
func (r *maintenanceRepository) FindOpenByVehicle(ctx context.Context, vehicleID int64) (*domain.Maintenance, error) {
	query := `
		SELECT id, vehicle_id, additional_info, start_date, end_date
		FROM maintenances
		WHERE vehicle_id = ? AND end_date IS NULL
	`

	maintenance, err := scanMaintenance(r.db.QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrMaintenanceNotFound
		}
		return nil, fmt.Errorf("failed to find open maintenance: %w", err)
	}

	return maintenance, nil
}

// Update updates an existing maintenance record.
func (r *maintenanceRepository) Update(ctx context.Context, maintenance *domain.Maintenance) error {
	query := `
		UPDATE maintenances
		SET vehicle_id = ?, additional_info = ?, start_date = ?, end_date = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		maintenance.VehicleID,
		maintenance.AdditionalInfo,
		maintenance.StartDate.Format(time.RFC3339),
		nullableTime(maintenance.EndDate),
		maintenance.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update maintenance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrMaintenanceNotFound
	}

	return nil
}

func collectMaintenances(rows *sql.Rows) ([]*domain.Maintenance, error) {
	var items []*domain.Maintenance
	for rows.Next() {
		maintenance, err := scanMaintenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan maintenance: %w", err)
		}
		items = append(items, maintenance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate maintenances: %w", err)
	}
	return items, nil
}

func scanMaintenance(row rowScanner) (*domain.Maintenance, error) {
	maintenance := &domain.Maintenance{}
	var startDate string
	var endDate sql.NullString

	err := row.Scan(
		&maintenance.ID,
		&maintenance.VehicleID,
		&maintenance.AdditionalInfo,
		&startDate,
		&endDate,
	)
	if err != nil {
		return nil, err
	}

	maintenance.StartDate, _ = time.Parse(time.RFC3339, startDate)
	maintenance.EndDate = parseNullableTime(endDate)

	return maintenance, nil
}

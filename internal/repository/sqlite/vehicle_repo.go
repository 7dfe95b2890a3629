package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// vehicleRepository implements repository.VehicleRepository for SQLite.
type vehicleRepository struct {
	db *DB
}

// NewVehicleRepository creates a new SQLite vehicle repository.
func NewVehicleRepository(db *DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, brand, model, model_year, chassis, plate, color, mileage, price,
	fuel, transmission, doors, motor, power, status, version, created_at, updated_at`

// Create creates a new vehicle.
func (r *vehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (brand, model, model_year, chassis, plate, color, mileage, price,
			fuel, transmission, doors, motor, power, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		vehicle.Brand,
		vehicle.Model,
		vehicle.ModelYear,
		vehicle.Chassis,
		vehicle.Plate,
		vehicle.Color,
		vehicle.Mileage,
		vehicle.Price,
		vehicle.Fuel,
		vehicle.Transmission,
		vehicle.Doors,
		vehicle.Motor,
		vehicle.Power,
		vehicle.Status,
		vehicle.Version,
		vehicle.CreatedAt.Format(time.RFC3339),
		vehicle.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrChassisTaken, vehicle.Chassis)
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	vehicle.ID = id

	return nil
}

// GetByID retrieves a vehicle by ID.
func (r *vehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`

	vehicle, err := scanVehicle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle by ID: %w", err)
	}

	return vehicle, nil
}

// GetByChassis retrieves a vehicle by chassis number.
func (r *vehicleRepository) GetByChassis(ctx context.Context, chassis string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE chassis = ?`

	vehicle, err := scanVehicle(r.db.QueryRowContext(ctx, query, chassis))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle by chassis: %w", err)
	}

	return vehicle, nil
}

// Search returns vehicles matching the filter with pagination.
func (r *vehicleRepository) Search(ctx context.Context, filter domain.VehicleFilter, opts repository.ListOptions) (*repository.ListResult[domain.Vehicle], error) {
	var conds []string
	var args []any

	if filter.Brand != "" {
		conds = append(conds, "brand LIKE ?")
		args = append(args, "%"+filter.Brand+"%")
	}
	if filter.Model != "" {
		conds = append(conds, "model LIKE ?")
		args = append(args, "%"+filter.Model+"%")
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.MaxPrice > 0 {
		conds = append(conds, "price <= ?")
		args = append(args, filter.MaxPrice)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM vehicles` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles` + where +
		orderClause(opts, map[string]string{"brand": "brand", "price": "price", "model_year": "model_year", "created_at": "created_at"}, "id") +
		` LIMIT ? OFFSET ?`
	args = append(args, normalizeLimit(opts.Limit), opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search vehicles: %w", err)
	}
	defer rows.Close()

	var items []*domain.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		items = append(items, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vehicles: %w", err)
	}

	return &repository.ListResult[domain.Vehicle]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  normalizeLimit(opts.Limit),
	}, nil
}

// Update updates descriptive attributes of an existing vehicle.
// Status and version are deliberately excluded; UpdateStatus owns them.
func (r *vehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET brand = ?, model = ?, model_year = ?, chassis = ?, plate = ?, color = ?,
			mileage = ?, price = ?, fuel = ?, transmission = ?, doors = ?, motor = ?,
			power = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		vehicle.Brand,
		vehicle.Model,
		vehicle.ModelYear,
		vehicle.Chassis,
		vehicle.Plate,
		vehicle.Color,
		vehicle.Mileage,
		vehicle.Price,
		vehicle.Fuel,
		vehicle.Transmission,
		vehicle.Doors,
		vehicle.Motor,
		vehicle.Power,
		vehicle.UpdatedAt.Format(time.RFC3339),
		vehicle.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrChassisTaken, vehicle.Chassis)
		}
		return fmt.Errorf("failed to update vehicle: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVehicleNotFound
	}

	return nil
}

// UpdateStatus writes the vehicle status with an optimistic version check.
func (r *vehicleRepository) UpdateStatus(ctx context.Context, id int64, status domain.VehicleStatus, expectedVersion int64) error {
	query := `
		UPDATE vehicles
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		status,
		time.Now().UTC().Format(time.RFC3339),
		id,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or a concurrent writer bumped the version.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check vehicle existence: %w", err)
		}
		if exists == 0 {
			return domain.ErrVehicleNotFound
		}
		return fmt.Errorf("%w: vehicle %d version %d", domain.ErrVersionConflict, id, expectedVersion)
	}

	return nil
}

// Delete deletes a vehicle by ID.
func (r *vehicleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: vehicle %d is referenced", domain.ErrValidation, id)
		}
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVehicleNotFound
	}

	return nil
}

// ExistsByChassis checks whether a vehicle other than excludeID uses the chassis.
func (r *vehicleRepository) ExistsByChassis(ctx context.Context, chassis string, excludeID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE chassis = ? AND id != ?`,
		chassis, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check chassis existence: %w", err)
	}
	return count > 0, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	var createdAt, updatedAt string

	err := row.Scan(
		&vehicle.ID,
		&vehicle.Brand,
		&vehicle.Model,
		&vehicle.ModelYear,
		&vehicle.Chassis,
		&vehicle.Plate,
		&vehicle.Color,
		&vehicle.Mileage,
		&vehicle.Price,
		&vehicle.Fuel,
		&vehicle.Transmission,
		&vehicle.Doors,
		&vehicle.Motor,
		&vehicle.Power,
		&vehicle.Status,
		&vehicle.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	vehicle.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	vehicle.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return vehicle, nil
}

// orderClause builds an ORDER BY clause from list options, restricted to the
// allowed column map so callers cannot inject arbitrary SQL.
func orderClause(opts repository.ListOptions, allowed map[string]string, fallback string) string {
	col, ok := allowed[opts.OrderBy]
	if !ok {
		col = fallback
	}
	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

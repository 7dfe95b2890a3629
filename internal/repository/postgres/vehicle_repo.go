package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// vehicleRepository implements repository.VehicleRepository for PostgreSQL.
type vehicleRepository struct {
	db *DB
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		vehicle.Brand, vehicle.Model, vehicle.ModelYear, vehicle.Chassis,
		vehicle.Plate, vehicle.Color, vehicle.Mileage, vehicle.Price,
		vehicle.Fuel, vehicle.Transmission, vehicle.Doors, vehicle.Motor,
		vehicle.Power, vehicle.Status, vehicle.Version,
		vehicle.CreatedAt, vehicle.UpdatedAt,
	).Scan(&vehicle.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrChassisTaken, vehicle.Chassis)
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

// GetByID retrieves a vehicle by ID.
func (r *vehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	vehicle, err := scanVehicle(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle by ID: %w", err)
	}

	return vehicle, nil
}

// GetByChassis retrieves a vehicle by chassis number.
func (r *vehicleRepository) GetByChassis(ctx context.Context, chassis string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE chassis = $1`

	vehicle, err := scanVehicle(r.db.conn(ctx).QueryRow(ctx, query, chassis))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Brand != "" {
		conds = append(conds, "brand ILIKE "+arg("%"+filter.Brand+"%"))
	}
	if filter.Model != "" {
		conds = append(conds, "model ILIKE "+arg("%"+filter.Model+"%"))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.MaxPrice > 0 {
		conds = append(conds, "price <= "+arg(filter.MaxPrice))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles` + where +
		orderClause(opts, map[string]string{"brand": "brand", "price": "price", "model_year": "model_year", "created_at": "created_at"}, "id") +
		" LIMIT " + arg(normalizeLimit(opts.Limit)) + " OFFSET " + arg(opts.Offset)

	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
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
func (r *vehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET brand = $1, model = $2, model_year = $3, chassis = $4, plate = $5, color = $6,
			mileage = $7, price = $8, fuel = $9, transmission = $10, doors = $11, motor = $12,
			power = $13, updated_at = $14
		WHERE id = $15
	`

	tag, err := r.db.conn(ctx).Exec(ctx, query,
		vehicle.Brand, vehicle.Model, vehicle.ModelYear, vehicle.Chassis,
		vehicle.Plate, vehicle.Color, vehicle.Mileage, vehicle.Price,
		vehicle.Fuel, vehicle.Transmission, vehicle.Doors, vehicle.Motor,
		vehicle.Power, vehicle.UpdatedAt, vehicle.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrChassisTaken, vehicle.Chassis)
		}
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVehicleNotFound
	}

	return nil
}

// UpdateStatus writes the vehicle status with an optimistic version check.
func (r *vehicleRepository) UpdateStatus(ctx context.Context, id int64, status domain.VehicleStatus, expectedVersion int64) error {
	query := `
		UPDATE vehicles
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`

	tag, err := r.db.conn(ctx).Exec(ctx, query, status, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check vehicle existence: %w", err)
		}
		if !exists {
			return domain.ErrVehicleNotFound
		}
		return fmt.Errorf("%w: vehicle %d version %d", domain.ErrVersionConflict, id, expectedVersion)
	}

	return nil
}

// Delete deletes a vehicle by ID.
func (r *vehicleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: vehicle %d is referenced", domain.ErrValidation, id)
		}
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVehicleNotFound
	}

	return nil
}

// ExistsByChassis checks whether a vehicle other than excludeID uses the chassis.
func (r *vehicleRepository) ExistsByChassis(ctx context.Context, chassis string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM vehicles WHERE chassis = $1 AND id != $2)`,
		chassis, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check chassis existence: %w", err)
	}
	return exists, nil
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	err := row.Scan(
		&vehicle.ID, &vehicle.Brand, &vehicle.Model, &vehicle.ModelYear,
		&vehicle.Chassis, &vehicle.Plate, &vehicle.Color, &vehicle.Mileage,
		&vehicle.Price, &vehicle.Fuel, &vehicle.Transmission, &vehicle.Doors,
		&vehicle.Motor, &vehicle.Power, &vehicle.Status, &vehicle.Version,
		&vehicle.CreatedAt, &vehicle.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

// orderClause builds an ORDER BY clause restricted to the allowed column map.
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

// isUniqueViolation checks for PostgreSQL error code 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation checks for PostgreSQL error code 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

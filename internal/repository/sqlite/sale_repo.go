package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// saleRepository implements repository.SaleRepository for SQLite.
type saleRepository struct {
	db *DB
}

// NewSaleRepository creates a new SQLite sale repository.
func NewSaleRepository(db *DB) repository.SaleRepository {
	return &saleRepository{db: db}
}

// Create creates a new sale.
func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (client_id, vehicle_id, status, sales_date, reserve_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		sale.ClientID,
		sale.VehicleID,
		sale.Status,
		sale.SalesDate.Format(time.RFC3339),
		nullableTime(sale.ReserveDate),
		sale.CreatedAt.Format(time.RFC3339),
		sale.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: client or vehicle does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	sale.ID = id

	return nil
}

// GetByID retrieves a sale by ID.
func (r *saleRepository) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	query := `
		SELECT id, client_id, vehicle_id, status, sales_date, reserve_date, created_at, updated_at
		FROM sales
		WHERE id = ?
	`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale by ID: %w", err)
	}

	return sale, nil
}

// List returns all sales with pagination.
func (r *saleRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Sale], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}

	query := `
		SELECT id, client_id, vehicle_id, status, sales_date, reserve_date, created_at, updated_at
		FROM sales` +
		orderClause(opts, map[string]string{"sales_date": "sales_date", "status": "status", "created_at": "created_at"}, "id") + `
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	items, err := collectSales(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Sale]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  normalizeLimit(opts.Limit),
	}, nil
}

// ListByVehicle returns all sales referencing the vehicle.
func (r *saleRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Sale, error) {
	query := `
		SELECT id, client_id, vehicle_id, status, sales_date, reserve_date, created_at, updated_at
		FROM sales
		WHERE vehicle_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales by vehicle: %w", err)
	}
	defer rows.Close()

	items, err := collectSales(rows)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update updates an existing sale.
func (r *saleRepository) Update(ctx context.Context, sale *domain.Sale) error {
	query := `
		UPDATE sales
		SET client_id = ?, vehicle_id = ?, status = ?, sales_date = ?, reserve_date = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		sale.ClientID,
		sale.VehicleID,
		sale.Status,
		sale.SalesDate.Format(time.RFC3339),
		nullableTime(sale.ReserveDate),
		sale.UpdatedAt.Format(time.RFC3339),
		sale.ID,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: client or vehicle does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("failed to update sale: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSaleNotFound
	}

	return nil
}

func collectSales(rows *sql.Rows) ([]*domain.Sale, error) {
	var items []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		items = append(items, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales: %w", err)
	}
	return items, nil
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	sale := &domain.Sale{}
	var salesDate, createdAt, updatedAt string
	var reserveDate sql.NullString

	err := row.Scan(
		&sale.ID,
		&sale.ClientID,
		&sale.VehicleID,
		&sale.Status,
		&salesDate,
		&reserveDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sale.SalesDate, _ = time.Parse(time.RFC3339, salesDate)
	sale.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sale.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	sale.ReserveDate = parseNullableTime(reserveDate)

	return sale, nil
}

// nullableTime formats an optional timestamp for storage.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// parseNullableTime parses an optional stored timestamp.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

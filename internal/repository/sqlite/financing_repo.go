package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// financingRepository implements repository.FinancingRepository for SQLite.
type financingRepository struct {
	db *DB
}

// NewFinancingRepository creates a new SQLite financing repository.
func NewFinancingRepository(db *DB) repository.FinancingRepository {
	return &financingRepository{db: db}
}

const financingColumns = `id, client_id, vehicle_id, total_amount, down_payment, installment_count,
	installment_value, annual_interest_rate, contract_date, first_installment_date, status,
	created_at, updated_at`

// Create creates a new financing contract.
func (r *financingRepository) Create(ctx context.Context, financing *domain.Financing) error {
	query := `
		INSERT INTO financings (client_id, vehicle_id, total_amount, down_payment, installment_count,
			installment_value, annual_interest_rate, contract_date, first_installment_date, status,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		financing.ClientID,
		financing.VehicleID,
		financing.TotalAmount,
		financing.DownPayment,
		financing.InstallmentCount,
		financing.InstallmentValue,
		financing.AnnualInterestRate,
		financing.ContractDate.Format(time.RFC3339),
		financing.FirstInstallmentDate.Format(time.RFC3339),
		financing.Status,
		financing.CreatedAt.Format(time.RFC3339),
		financing.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			// Partial unique index on non-CANCELED contracts per vehicle.
			return fmt.Errorf("%w: vehicle %d", domain.ErrFinancingActiveExists, financing.VehicleID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: client or vehicle does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("failed to create financing: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	financing.ID = id

	return nil
}

// GetByID retrieves a financing contract by ID.
func (r *financingRepository) GetByID(ctx context.Context, id int64) (*domain.Financing, error) {
	query := `SELECT ` + financingColumns + ` FROM financings WHERE id = ?`

	financing, err := scanFinancing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrFinancingNotFound
		}
		return nil, fmt.Errorf("failed to get financing by ID: %w", err)
	}

	return financing, nil
}

// List returns all financing contracts with pagination.
func (r *financingRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Financing], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM financings`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count financings: %w", err)
	}

	query := `SELECT ` + financingColumns + ` FROM financings` +
		orderClause(opts, map[string]string{"contract_date": "contract_date", "status": "status", "created_at": "created_at"}, "id") + `
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list financings: %w", err)
	}
	defer rows.Close()

	items, err := collectFinancings(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ListResult[domain.Financing]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  normalizeLimit(opts.Limit),
	}, nil
}

// ListByVehicle returns all financing contracts referencing the vehicle.
func (r *financingRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Financing, error) {
	query := `SELECT ` + financingColumns + ` FROM financings WHERE vehicle_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list financings by vehicle: %w", err)
	}
	defer rows.Close()

	items, err := collectFinancings(rows)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindActiveByVehicle returns the non-CANCELED contract for the vehicle.
func (r *financingRepository) FindActiveByVehicle(ctx context.Context, vehicleID int64) (*domain.Financing, error) {
	query := `SELECT ` + financingColumns + ` FROM financings WHERE vehicle_id = ? AND status != ?`

	financing, err := scanFinancing(r.db.QueryRowContext(ctx, query, vehicleID, domain.FinancingCanceled))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrFinancingNotFound
		}
		return nil, fmt.Errorf("failed to find active financing: %w", err)
	}

	return financing, nil
}

// Update updates an existing financing contract.
func (r *financingRepository) Update(ctx context.Context, financing *domain.Financing) error {
	query := `
		UPDATE financings
		SET client_id = ?, vehicle_id = ?, total_amount = ?, down_payment = ?, installment_count = ?,
			installment_value = ?, annual_interest_rate = ?, contract_date = ?,
			first_installment_date = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		financing.ClientID,
		financing.VehicleID,
		financing.TotalAmount,
		financing.DownPayment,
		financing.InstallmentCount,
		financing.InstallmentValue,
		financing.AnnualInterestRate,
		financing.ContractDate.Format(time.RFC3339),
		financing.FirstInstallmentDate.Format(time.RFC3339),
		financing.Status,
		financing.UpdatedAt.Format(time.RFC3339),
		financing.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: vehicle %d", domain.ErrFinancingActiveExists, financing.VehicleID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: client or vehicle does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("failed to update financing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrFinancingNotFound
	}

	return nil
}

func collectFinancings(rows *sql.Rows) ([]*domain.Financing, error) {
	var items []*domain.Financing
	for rows.Next() {
		financing, err := scanFinancing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financing: %w", err)
		}
		items = append(items, financing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate financings: %w", err)
	}
	return items, nil
}

func scanFinancing(row rowScanner) (*domain.Financing, error) {
	financing := &domain.Financing{}
	var contractDate, firstInstallmentDate, createdAt, updatedAt string

	err := row.Scan(
		&financing.ID,
		&financing.ClientID,
		&financing.VehicleID,
		&financing.TotalAmount,
		&financing.DownPayment,
		&financing.InstallmentCount,
		&financing.InstallmentValue,
		&financing.AnnualInterestRate,
		&contractDate,
		&firstInstallmentDate,
		&financing.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	financing.ContractDate, _ = time.Parse(time.RFC3339, contractDate)
	financing.FirstInstallmentDate, _ = time.Parse(time.RFC3339, firstInstallmentDate)
	financing.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	financing.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return financing, nil
}

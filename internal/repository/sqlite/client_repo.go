package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// clientRepository implements repository.ClientRepository for SQLite.
type clientRepository struct {
	db *DB
}

// NewClientRepository creates a new SQLite client repository.
func NewClientRepository(db *DB) repository.ClientRepository {
	return &clientRepository{db: db}
}

// Create creates a new client.
func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (first_name, last_name, email, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		client.FirstName,
		client.LastName,
		client.Email,
		client.Phone,
		client.CreatedAt.Format(time.RFC3339),
		client.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrEmailTaken, client.Email)
		}
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	client.ID = id

	return nil
}

// GetByID retrieves a client by ID.
func (r *clientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, created_at, updated_at
		FROM clients
		WHERE id = ?
	`

	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client by ID: %w", err)
	}

	return client, nil
}

// GetByEmail retrieves a client by email.
func (r *clientRepository) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, created_at, updated_at
		FROM clients
		WHERE email = ?
	`

	client, err := scanClient(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client by email: %w", err)
	}

	return client, nil
}

// List returns all clients with pagination.
func (r *clientRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Client], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}

	query := `
		SELECT id, first_name, last_name, email, phone, created_at, updated_at
		FROM clients` +
		orderClause(opts, map[string]string{"last_name": "last_name", "email": "email", "created_at": "created_at"}, "id") + `
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, normalizeLimit(opts.Limit), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var items []*domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		items = append(items, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}

	return &repository.ListResult[domain.Client]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  normalizeLimit(opts.Limit),
	}, nil
}

// Update updates an existing client.
func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	query := `
		UPDATE clients
		SET first_name = ?, last_name = ?, email = ?, phone = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		client.FirstName,
		client.LastName,
		client.Email,
		client.Phone,
		client.UpdatedAt.Format(time.RFC3339),
		client.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrEmailTaken, client.Email)
		}
		return fmt.Errorf("failed to update client: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrClientNotFound
	}

	return nil
}

// Delete deletes a client by ID.
func (r *clientRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: client %d is referenced", domain.ErrValidation, id)
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrClientNotFound
	}

	return nil
}

// ExistsByEmail checks whether a client other than excludeID uses the email.
func (r *clientRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE email = ? AND id != ?`,
		email, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

func scanClient(row rowScanner) (*domain.Client, error) {
	client := &domain.Client{}
	var createdAt, updatedAt string

	err := row.Scan(
		&client.ID,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.Phone,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	client.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	client.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return client, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// attachmentRepository implements repository.AttachmentRepository for SQLite.
type attachmentRepository struct {
	db *DB
}

// NewAttachmentRepository creates a new SQLite attachment repository.
func NewAttachmentRepository(db *DB) repository.AttachmentRepository {
	return &attachmentRepository{db: db}
}

// Create creates a new attachment row.
func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	query := `
		INSERT INTO attachments (vehicle_id, storage_key, public_path, content_type, type, upload_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		attachment.VehicleID,
		attachment.StorageKey,
		attachment.PublicPath,
		attachment.ContentType,
		attachment.Type,
		attachment.UploadStatus,
		attachment.CreatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: vehicle does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	attachment.ID = id

	return nil
}

// GetByID retrieves an attachment by ID.
func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	query := `
		SELECT id, vehicle_id, storage_key, public_path, content_type, type, upload_status, created_at
		FROM attachments
		WHERE id = ?
	`

	attachment, err := scanAttachment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment by ID: %w", err)
	}

	return attachment, nil
}

// ListByVehicle returns all attachments of the vehicle.
func (r *attachmentRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Attachment, error) {
	query := `
		SELECT id, vehicle_id, storage_key, public_path, content_type, type, upload_status, created_at
		FROM attachments
		WHERE vehicle_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments by vehicle: %w", err)
	}
	defer rows.Close()

	items, err := collectAttachments(rows)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateUploadStatus updates the two-phase upload state of a row.
func (r *attachmentRepository) UpdateUploadStatus(ctx context.Context, id int64, status domain.UploadStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attachments SET upload_status = ? WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrAttachmentNotFound
	}

	return nil
}

// Delete deletes an attachment row by ID.
func (r *attachmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrAttachmentNotFound
	}

	return nil
}

// ListStalePending returns pending rows created before the cutoff.
func (r *attachmentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Attachment, error) {
	query := `
		SELECT id, vehicle_id, storage_key, public_path, content_type, type, upload_status, created_at
		FROM attachments
		WHERE upload_status = ? AND created_at < ?
		ORDER BY created_at
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		domain.UploadPending,
		cutoff.UTC().Format(time.RFC3339),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending attachments: %w", err)
	}
	defer rows.Close()

	items, err := collectAttachments(rows)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func collectAttachments(rows *sql.Rows) ([]*domain.Attachment, error) {
	var items []*domain.Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		items = append(items, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return items, nil
}

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	attachment := &domain.Attachment{}
	var createdAt string

	err := row.Scan(
		&attachment.ID,
		&attachment.VehicleID,
		&attachment.StorageKey,
		&attachment.PublicPath,
		&attachment.ContentType,
		&attachment.Type,
		&attachment.UploadStatus,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	attachment.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return attachment, nil
}

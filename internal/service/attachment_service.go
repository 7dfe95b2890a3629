package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

// AttachmentService manages vehicle file attachments over a pluggable blob
// backend. With the local backend the bytes arrive with the request and rows
// are committed immediately. With the S3 backend the caller gets presigned
// PUT URLs, rows start pending, and a confirm call commits them.
type AttachmentService struct {
	attachmentRepo repository.AttachmentRepository
	vehicleRepo    repository.VehicleRepository
	backend        storage.Backend
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewAttachmentService creates a new AttachmentService. Metrics may be nil.
func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	vehicleRepo repository.VehicleRepository,
	backend storage.Backend,
	mtr *metrics.Metrics,
	logger zerolog.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		vehicleRepo:    vehicleRepo,
		backend:        backend,
		metrics:        mtr,
		logger:         logger.With().Str("service", "attachment").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// DirectUpload is one file arriving with the request (local backend).
type DirectUpload struct {
	Filename    string
	ContentType string
	Type        domain.AttachmentType
	Reader      io.Reader
	Size        int64
}

// PresignRequest asks for one presigned upload slot (S3 backend).
type PresignRequest struct {
	Filename    string
	ContentType string
	Type        domain.AttachmentType
}

// PresignedAttachment pairs the pending metadata row with the upload the
// caller must perform.
type PresignedAttachment struct {
	Attachment *domain.Attachment       `json:"attachment"`
	Upload     *storage.PresignedUpload `json:"upload"`
}

// CleanupFailure reports a blob that outlived its metadata row because the
// backend delete failed. Surfaced so operators can reconcile orphans.
type CleanupFailure struct {
	AttachmentID int64  `json:"attachment_id"`
	StorageKey   string `json:"storage_key"`
	Reason       string `json:"reason"`
}

// UpdateAttachmentsInput adds and removes attachments for one vehicle.
type UpdateAttachmentsInput struct {
	VehicleID int64
	Add       []DirectUpload
	DeleteIDs []int64
}

// =============================================================================
// Service Methods
// =============================================================================

// Save stores uploaded files for a vehicle (direct-upload backends only).
// Empty files are skipped. Storage write failures are propagated; the caller
// can retry.
func (s *AttachmentService) Save(ctx context.Context, vehicleID int64, uploads []DirectUpload) ([]*domain.Attachment, error) {
	if !s.backend.SupportsDirectUpload() {
		return nil, storage.ErrDirectUploadUnsupported
	}
	if _, err := s.vehicleRepo.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}

	var created []*domain.Attachment
	for _, upload := range uploads {
		if upload.Size == 0 || upload.Filename == "" {
			continue
		}

		key := storage.NewKey(vehicleID, upload.Filename)
		if err := s.backend.Store(ctx, key, upload.Reader, upload.Size, upload.ContentType); err != nil {
			return created, fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
		}

		attachment := &domain.Attachment{
			VehicleID:    vehicleID,
			StorageKey:   key,
			PublicPath:   s.backend.PublicPath(key),
			ContentType:  upload.ContentType,
			Type:         attachmentType(upload.Type),
			UploadStatus: domain.UploadCommitted,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
			// The blob exists but the row doesn't; clean up best-effort.
			if derr := s.backend.Delete(ctx, key); derr != nil {
				s.logger.Warn().Err(derr).Str("key", key).Msg("orphaned blob after failed row create")
			}
			return created, err
		}

		created = append(created, attachment)
	}

	s.logger.Info().
		Int64("vehicle_id", vehicleID).
		Int("count", len(created)).
		Msg("attachments stored")

	return created, nil
}

// CreatePresigned issues presigned uploads for a vehicle (presign backends
// only). Metadata rows are pre-created in PENDING state; Confirm commits
// them once the caller completes the PUT. Unconfirmed rows are reaped by the
// sweeper.
func (s *AttachmentService) CreatePresigned(ctx context.Context, vehicleID int64, requests []PresignRequest) ([]*PresignedAttachment, error) {
	if s.backend.SupportsDirectUpload() {
		return nil, storage.ErrPresignUnsupported
	}
	if _, err := s.vehicleRepo.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}

	var results []*PresignedAttachment
	for _, req := range requests {
		if req.Filename == "" {
			continue
		}

		key := storage.NewKey(vehicleID, req.Filename)
		upload, err := s.backend.PresignPut(ctx, key, req.ContentType)
		if err != nil {
			return results, fmt.Errorf("%w: %v", domain.ErrStorageWrite, err)
		}

		attachment := &domain.Attachment{
			VehicleID:    vehicleID,
			StorageKey:   key,
			PublicPath:   s.backend.PublicPath(key),
			ContentType:  req.ContentType,
			Type:         attachmentType(req.Type),
			UploadStatus: domain.UploadPending,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
			return results, err
		}

		if s.metrics != nil {
			s.metrics.PresignedUploadsTotal.Inc()
		}

		results = append(results, &PresignedAttachment{
			Attachment: attachment,
			Upload:     upload,
		})
	}

	s.logger.Info().
		Int64("vehicle_id", vehicleID).
		Int("count", len(results)).
		Msg("presigned uploads issued")

	return results, nil
}

// Confirm commits a pending attachment after the caller finished its upload.
func (s *AttachmentService) Confirm(ctx context.Context, id int64) (*domain.Attachment, error) {
	attachment, err := s.attachmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !attachment.IsPending() {
		return nil, fmt.Errorf("%w: attachment %d", domain.ErrUploadNotPending, id)
	}

	if err := s.attachmentRepo.UpdateUploadStatus(ctx, id, domain.UploadCommitted); err != nil {
		return nil, err
	}
	attachment.UploadStatus = domain.UploadCommitted

	s.logger.Info().Int64("attachment_id", id).Msg("upload confirmed")

	return attachment, nil
}

// Update adds new files and deletes existing attachments for one vehicle.
// Delete IDs that belong to a different vehicle are silently skipped. Blob
// deletion is best-effort; failures are returned as CleanupFailures, never
// as request errors.
func (s *AttachmentService) Update(ctx context.Context, input UpdateAttachmentsInput) ([]*domain.Attachment, []CleanupFailure, error) {
	if _, err := s.vehicleRepo.GetByID(ctx, input.VehicleID); err != nil {
		return nil, nil, err
	}

	var added []*domain.Attachment
	if len(input.Add) > 0 {
		var err error
		added, err = s.Save(ctx, input.VehicleID, input.Add)
		if err != nil {
			return added, nil, err
		}
	}

	var failures []CleanupFailure
	for _, id := range input.DeleteIDs {
		attachment, err := s.attachmentRepo.GetByID(ctx, id)
		if err != nil {
			// Already gone; nothing to report.
			continue
		}
		if attachment.VehicleID != input.VehicleID {
			// Ownership check: silently skip ids of other vehicles.
			continue
		}

		if failure := s.deleteWithBlob(ctx, attachment); failure != nil {
			failures = append(failures, *failure)
		}
	}

	return added, failures, nil
}

// Delete removes an attachment row and best-effort deletes its blob.
func (s *AttachmentService) Delete(ctx context.Context, id int64) (*CleanupFailure, error) {
	attachment, err := s.attachmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.deleteWithBlob(ctx, attachment), nil
}

// ListByVehicle returns the attachments of a vehicle.
func (s *AttachmentService) ListByVehicle(ctx context.Context, vehicleID int64) ([]*domain.Attachment, error) {
	return s.attachmentRepo.ListByVehicle(ctx, vehicleID)
}

// Get retrieves an attachment by ID.
func (s *AttachmentService) Get(ctx context.Context, id int64) (*domain.Attachment, error) {
	return s.attachmentRepo.GetByID(ctx, id)
}

// deleteWithBlob removes the metadata row, then the blob. A failed blob
// delete leaves an orphan and is reported, not raised.
func (s *AttachmentService) deleteWithBlob(ctx context.Context, attachment *domain.Attachment) *CleanupFailure {
	if err := s.attachmentRepo.Delete(ctx, attachment.ID); err != nil {
		s.logger.Warn().Err(err).Int64("attachment_id", attachment.ID).Msg("failed to delete attachment row")
		return &CleanupFailure{
			AttachmentID: attachment.ID,
			StorageKey:   attachment.StorageKey,
			Reason:       err.Error(),
		}
	}

	if err := s.backend.Delete(ctx, attachment.StorageKey); err != nil {
		s.logger.Warn().
			Err(err).
			Int64("attachment_id", attachment.ID).
			Str("key", attachment.StorageKey).
			Msg("failed to delete blob, orphan left behind")
		return &CleanupFailure{
			AttachmentID: attachment.ID,
			StorageKey:   attachment.StorageKey,
			Reason:       err.Error(),
		}
	}

	return nil
}

func attachmentType(t domain.AttachmentType) domain.AttachmentType {
	if t == domain.AttachmentImage || t == domain.AttachmentFile {
		return t
	}
	return domain.AttachmentFile
}

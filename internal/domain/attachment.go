package domain

import "time"

// AttachmentType distinguishes images from generic documents.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "IMAGE"
	AttachmentFile  AttachmentType = "FILE"
)

// UploadStatus tracks the two-phase presigned upload flow. Rows created for a
// presigned upload start pending and are committed by an explicit confirm
// call once the caller has completed the out-of-band PUT. Local-disk uploads
// are committed immediately because the bytes arrive with the request.
type UploadStatus string

const (
	UploadPending   UploadStatus = "PENDING"
	UploadCommitted UploadStatus = "COMMITTED"
)

// Attachment associates a stored blob with a vehicle. Deleting the row
// triggers best-effort deletion of the underlying blob.
type Attachment struct {
	// ID is the unique identifier.
	ID int64 `json:"id"`

	// VehicleID references the owning vehicle.
	VehicleID int64 `json:"vehicle_id"`

	// StorageKey is the backend key of the blob (relative path for the local
	// backend, object key for the S3 backend).
	StorageKey string `json:"storage_key"`

	// PublicPath is the path or URL served to clients.
	PublicPath string `json:"public_path"`

	// ContentType is the MIME type declared at upload time.
	ContentType string `json:"content_type"`

	// Type is the attachment category.
	Type AttachmentType `json:"type"`

	// UploadStatus is the two-phase upload state.
	UploadStatus UploadStatus `json:"upload_status"`

	// CreatedAt is the timestamp when the row was created.
	CreatedAt time.Time `json:"created_at"`
}

// IsPending reports whether the blob upload has not been confirmed yet.
func (a *Attachment) IsPending() bool {
	return a.UploadStatus == UploadPending
}

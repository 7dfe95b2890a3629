// Package storage defines interfaces for blob storage backends.
// The storage layer persists attachment blobs; metadata lives in the
// attachments table. Two backends exist: local disk, where the server
// receives the bytes and writes them itself, and S3, where the server only
// issues a presigned PUT URL and the caller uploads out of band.
package storage

import (
	"context"
	"io"
	"time"
)

// Backend defines the interface for blob storage backends.
type Backend interface {
	// Store writes content under the given key. Only supported by backends
	// that accept direct uploads; the S3 backend returns ErrDirectUploadUnsupported.
	Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Open returns a reader for the blob. Caller must close it.
	// Returns ErrBlobNotFound if the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing key is not an error;
	// callers use Delete for best-effort cleanup.
	Delete(ctx context.Context, key string) error

	// PublicPath returns the path or URL under which the blob is served.
	PublicPath(key string) string

	// SupportsDirectUpload reports whether Store accepts bytes directly.
	SupportsDirectUpload() bool

	// PresignPut returns a presigned upload for the key. Only supported by
	// backends that hand uploads off; the local backend returns
	// ErrPresignUnsupported.
	PresignPut(ctx context.Context, key string, contentType string) (*PresignedUpload, error)
}

// PresignedUpload describes an out-of-band upload the caller performs itself.
type PresignedUpload struct {
	// URL is the presigned PUT target.
	URL string `json:"url"`

	// Method is the HTTP method to use (always PUT).
	Method string `json:"method"`

	// Headers must be sent verbatim with the upload request.
	Headers map[string]string `json:"headers,omitempty"`

	// ExpiresAt is when the URL stops working.
	ExpiresAt time.Time `json:"expires_at"`
}

package storage

import "errors"

// Storage backend errors.
var (
	// ErrBlobNotFound indicates the requested blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrDirectUploadUnsupported indicates the backend does not accept bytes
	// directly; callers must use PresignPut.
	ErrDirectUploadUnsupported = errors.New("direct upload not supported by backend")

	// ErrPresignUnsupported indicates the backend does not hand uploads off;
	// callers must use Store.
	ErrPresignUnsupported = errors.New("presigned upload not supported by backend")

	// ErrInvalidKey indicates a malformed or unsafe storage key.
	ErrInvalidKey = errors.New("invalid storage key")
)

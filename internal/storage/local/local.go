// Package local implements a local filesystem storage backend.
// Blobs are written under a configured data directory and served by the HTTP
// layer from the public base path. Writes go through a temp file and rename
// so a crashed upload never leaves a partial blob visible.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

// Backend implements storage.Backend using the local filesystem.
type Backend struct {
	dataDir       string
	publicBaseURL string
	logger        zerolog.Logger
}

// New creates a local filesystem backend rooted at dataDir.
func New(dataDir, publicBaseURL string, logger zerolog.Logger) (*Backend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger.Info().
		Str("data_dir", dataDir).
		Str("public_base_url", publicBaseURL).
		Msg("local storage backend initialized")

	return &Backend{
		dataDir:       dataDir,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}, nil
}

// Store writes the blob under key.
func (b *Backend) Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if !storage.ValidKey(key) {
		return fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}

	dest := filepath.Join(b.dataDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if size > 0 && written != size {
		os.Remove(tmpName)
		return fmt.Errorf("short write: expected %d bytes, wrote %d", size, written)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize blob: %w", err)
	}

	b.logger.Debug().
		Str("key", key).
		Int64("size", written).
		Str("content_type", contentType).
		Msg("blob stored")

	return nil
}

// Open returns a reader for the blob.
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !storage.ValidKey(key) {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}

	f, err := os.Open(filepath.Join(b.dataDir, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob. Missing blobs are ignored.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if !storage.ValidKey(key) {
		return fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}

	err := os.Remove(filepath.Join(b.dataDir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// PublicPath returns the path under which the HTTP layer serves the blob.
func (b *Backend) PublicPath(key string) string {
	return b.publicBaseURL + "/" + key
}

// SupportsDirectUpload reports that the local backend accepts bytes directly.
func (b *Backend) SupportsDirectUpload() bool {
	return true
}

// PresignPut is not supported for local disk.
func (b *Backend) PresignPut(ctx context.Context, key string, contentType string) (*storage.PresignedUpload, error) {
	return nil, storage.ErrPresignUnsupported
}

// DataDir returns the root directory, used by the HTTP file server.
func (b *Backend) DataDir() string {
	return b.dataDir
}

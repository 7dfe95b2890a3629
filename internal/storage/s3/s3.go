// Package s3 implements an S3-compatible storage backend.
// The server never proxies blob bytes: uploads happen through presigned PUT
// URLs handed to the caller, and deletes go straight to the bucket. Works
// with AWS S3 and S3-compatible stores such as MinIO (path-style addressing).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	appconfig "github.com/meridian-motors/meridian-backoffice/internal/config"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

// Backend implements storage.Backend against an S3-compatible bucket.
type Backend struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
	publicBaseURL string
	logger        zerolog.Logger
}

// New creates an S3 backend from the storage configuration.
func New(ctx context.Context, cfg appconfig.S3StorageConfig, publicBaseURL string, logger zerolog.Logger) (*Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Dur("presign_expiry", expiry).
		Msg("s3 storage backend initialized")

	return &Backend{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignExpiry: expiry,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Store is not supported; uploads go through presigned URLs.
func (b *Backend) Store(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return storage.ErrDirectUploadUnsupported
}

// Open returns a reader for the blob.
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, storage.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return out.Body, nil
}

// Delete removes the blob. S3 DeleteObject is idempotent, so missing keys
// are silently fine.
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicPath returns the public URL of the blob.
func (b *Backend) PublicPath(key string) string {
	return b.publicBaseURL + "/" + key
}

// SupportsDirectUpload reports that uploads are handed off via presign.
func (b *Backend) SupportsDirectUpload() bool {
	return false
}

// PresignPut returns a presigned PUT for the key.
func (b *Backend) PresignPut(ctx context.Context, key string, contentType string) (*storage.PresignedUpload, error) {
	if !storage.ValidKey(key) {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidKey, key)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := b.presignClient.PresignPutObject(ctx, input, s3.WithPresignExpires(b.presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign put: %w", err)
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for name, values := range req.SignedHeader {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	return &storage.PresignedUpload{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: time.Now().UTC().Add(b.presignExpiry),
	}, nil
}

// isNoSuchKey checks for the S3 NoSuchKey error code.
func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}

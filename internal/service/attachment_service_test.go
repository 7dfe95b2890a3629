package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

func newAttachmentFixture(direct bool) (*AttachmentService, *MockAttachmentRepository, *MockVehicleRepository, *MockBackend) {
	attachmentRepo := NewMockAttachmentRepository()
	vehicleRepo := NewMockVehicleRepository()
	backend := NewMockBackend(direct)
	svc := NewAttachmentService(attachmentRepo, vehicleRepo, backend, nil, zerolog.Nop())
	return svc, attachmentRepo, vehicleRepo, backend
}

func textUpload(name, content string) DirectUpload {
	return DirectUpload{
		Filename:    name,
		ContentType: "text/plain",
		Type:        domain.AttachmentFile,
		Reader:      strings.NewReader(content),
		Size:        int64(len(content)),
	}
}

func TestAttachmentService_Save(t *testing.T) {
	svc, _, vehicleRepo, backend := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	created, err := svc.Save(context.Background(), vehicle.ID, []DirectUpload{
		textUpload("invoice.txt", "paid in full"),
		{Filename: "empty.txt", Size: 0}, // skipped
		textUpload("photo.jpg", "not really a jpg"),
	})
	require.NoError(t, err)
	require.Len(t, created, 2, "empty files are skipped")

	for _, a := range created {
		assert.Equal(t, vehicle.ID, a.VehicleID)
		assert.Equal(t, domain.UploadCommitted, a.UploadStatus)
		assert.NotEmpty(t, a.PublicPath)
		_, ok := backend.blobs[a.StorageKey]
		assert.True(t, ok, "blob must exist for %s", a.StorageKey)
	}
}

func TestAttachmentService_Save_UnknownVehicle(t *testing.T) {
	svc, _, _, _ := newAttachmentFixture(true)
	_, err := svc.Save(context.Background(), 99, []DirectUpload{textUpload("a.txt", "x")})
	require.ErrorIs(t, err, domain.ErrVehicleNotFound)
}

func TestAttachmentService_Save_StorageFailure(t *testing.T) {
	svc, attachmentRepo, vehicleRepo, backend := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})
	backend.storeErr = errors.New("disk full")

	_, err := svc.Save(context.Background(), vehicle.ID, []DirectUpload{textUpload("a.txt", "x")})
	require.ErrorIs(t, err, domain.ErrStorageWrite)

	rows, _ := attachmentRepo.ListByVehicle(context.Background(), vehicle.ID)
	assert.Empty(t, rows, "no row for a blob that was never written")
}

func TestAttachmentService_Save_RowCreateFailureCleansBlob(t *testing.T) {
	svc, attachmentRepo, vehicleRepo, backend := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})
	attachmentRepo.createErr = errors.New("constraint violation")

	_, err := svc.Save(context.Background(), vehicle.ID, []DirectUpload{textUpload("a.txt", "x")})
	require.Error(t, err)
	assert.Empty(t, backend.blobs, "blob must be cleaned up when the row create fails")
}

func TestAttachmentService_Save_PresignBackendRejected(t *testing.T) {
	svc, _, vehicleRepo, _ := newAttachmentFixture(false)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	_, err := svc.Save(context.Background(), vehicle.ID, []DirectUpload{textUpload("a.txt", "x")})
	require.ErrorIs(t, err, storage.ErrDirectUploadUnsupported)
}

func TestAttachmentService_CreatePresignedAndConfirm(t *testing.T) {
	svc, _, vehicleRepo, _ := newAttachmentFixture(false)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	results, err := svc.CreatePresigned(context.Background(), vehicle.ID, []PresignRequest{
		{Filename: "photo.jpg", ContentType: "image/jpeg", Type: domain.AttachmentImage},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, domain.UploadPending, result.Attachment.UploadStatus)
	assert.Equal(t, "PUT", result.Upload.Method)
	assert.NotEmpty(t, result.Upload.URL)

	confirmed, err := svc.Confirm(context.Background(), result.Attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadCommitted, confirmed.UploadStatus)

	// A second confirm is rejected.
	_, err = svc.Confirm(context.Background(), result.Attachment.ID)
	require.ErrorIs(t, err, domain.ErrUploadNotPending)
}

func TestAttachmentService_CreatePresigned_DirectBackendRejected(t *testing.T) {
	svc, _, vehicleRepo, _ := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})

	_, err := svc.CreatePresigned(context.Background(), vehicle.ID, []PresignRequest{
		{Filename: "photo.jpg", ContentType: "image/jpeg"},
	})
	require.ErrorIs(t, err, storage.ErrPresignUnsupported)
}

func TestAttachmentService_Update(t *testing.T) {
	svc, attachmentRepo, vehicleRepo, backend := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})
	other := vehicleRepo.Add(&domain.Vehicle{Chassis: "OTHER2222", Status: domain.VehicleAvailable})

	mine := attachmentRepo.Add(&domain.Attachment{
		VehicleID:    vehicle.ID,
		StorageKey:   "vehicles/1/mine.txt",
		UploadStatus: domain.UploadCommitted,
		CreatedAt:    time.Now().UTC(),
	})
	theirs := attachmentRepo.Add(&domain.Attachment{
		VehicleID:    other.ID,
		StorageKey:   "vehicles/2/theirs.txt",
		UploadStatus: domain.UploadCommitted,
		CreatedAt:    time.Now().UTC(),
	})
	backend.blobs[mine.StorageKey] = []byte("mine")
	backend.blobs[theirs.StorageKey] = []byte("theirs")

	added, failures, err := svc.Update(context.Background(), UpdateAttachmentsInput{
		VehicleID: vehicle.ID,
		Add:       []DirectUpload{textUpload("new.txt", "new content")},
		DeleteIDs: []int64{mine.ID, theirs.ID, 999},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Empty(t, failures)

	// Own attachment deleted, row and blob.
	_, err = attachmentRepo.GetByID(context.Background(), mine.ID)
	require.ErrorIs(t, err, domain.ErrAttachmentNotFound)
	_, ok := backend.blobs[mine.StorageKey]
	assert.False(t, ok)

	// Foreign attachment silently skipped, untouched.
	kept, err := attachmentRepo.GetByID(context.Background(), theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, kept.VehicleID)
	_, ok = backend.blobs[theirs.StorageKey]
	assert.True(t, ok)
}

func TestAttachmentService_Update_BlobDeleteFailureReported(t *testing.T) {
	svc, attachmentRepo, vehicleRepo, backend := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})
	attachment := attachmentRepo.Add(&domain.Attachment{
		VehicleID:    vehicle.ID,
		StorageKey:   "vehicles/1/doc.txt",
		UploadStatus: domain.UploadCommitted,
		CreatedAt:    time.Now().UTC(),
	})
	backend.blobs[attachment.StorageKey] = []byte("doc")
	backend.deleteErr = errors.New("backend unavailable")

	_, failures, err := svc.Update(context.Background(), UpdateAttachmentsInput{
		VehicleID: vehicle.ID,
		DeleteIDs: []int64{attachment.ID},
	})
	require.NoError(t, err, "blob cleanup failures never fail the request")
	require.Len(t, failures, 1)
	assert.Equal(t, attachment.ID, failures[0].AttachmentID)
	assert.Equal(t, attachment.StorageKey, failures[0].StorageKey)
	assert.NotEmpty(t, failures[0].Reason)

	// The metadata row is gone even though the blob survived.
	_, err = attachmentRepo.GetByID(context.Background(), attachment.ID)
	require.ErrorIs(t, err, domain.ErrAttachmentNotFound)
}

func TestAttachmentService_Delete(t *testing.T) {
	svc, attachmentRepo, vehicleRepo, backend := newAttachmentFixture(true)
	vehicle := vehicleRepo.Add(&domain.Vehicle{Chassis: "9BW111111", Status: domain.VehicleAvailable})
	attachment := attachmentRepo.Add(&domain.Attachment{
		VehicleID:    vehicle.ID,
		StorageKey:   "vehicles/1/doc.txt",
		UploadStatus: domain.UploadCommitted,
		CreatedAt:    time.Now().UTC(),
	})
	backend.blobs[attachment.StorageKey] = []byte("doc")

	failure, err := svc.Delete(context.Background(), attachment.ID)
	require.NoError(t, err)
	assert.Nil(t, failure)

	_, err = svc.Get(context.Background(), attachment.ID)
	require.ErrorIs(t, err, domain.ErrAttachmentNotFound)
}

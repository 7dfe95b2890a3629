package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// AttachmentHandler handles vehicle file attachment requests. With the local
// backend, files arrive as multipart form data. With the S3 backend, callers
// request presigned uploads, PUT the bytes themselves, then confirm.
type AttachmentHandler struct {
	attachments *service.AttachmentService
	maxBodySize int64
	logger      zerolog.Logger
}

// NewAttachmentHandler creates a new attachment handler.
func NewAttachmentHandler(attachments *service.AttachmentService, maxBodySize int64, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: attachments,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("handler", "attachment").Logger(),
	}
}

// presignRequestBody is the JSON body for presigned upload requests.
type presignRequestBody struct {
	Files []struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Type        string `json:"type"`
	} `json:"files"`
}

// updateResponse pairs added attachments with cleanup failures from deletes.
type updateResponse struct {
	Added    []*domain.Attachment     `json:"added"`
	Failures []service.CleanupFailure `json:"cleanup_failures,omitempty"`
}

// RegisterRoutes registers attachment routes.
func (h *AttachmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/files", func(r chi.Router) {
		r.Post("/confirm/{id}", h.confirm)
		r.Get("/vehicle/{id}", h.listByVehicle)
		r.Post("/vehicle/{id}", h.upload)
		r.Put("/vehicle/{id}", h.update)
		r.Post("/vehicle/{id}/presign", h.presign)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
	})
}

// upload stores multipart files for a vehicle (local backend).
func (h *AttachmentHandler) upload(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	uploads, cleanup, err := h.parseUploads(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanup()

	created, err := h.attachments.Save(r.Context(), vehicleID, uploads)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// presign issues presigned uploads for a vehicle (S3 backend).
func (h *AttachmentHandler) presign(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var body presignRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}

	requests := make([]service.PresignRequest, 0, len(body.Files))
	for _, f := range body.Files {
		requests = append(requests, service.PresignRequest{
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Type:        domain.AttachmentType(f.Type),
		})
	}

	results, err := h.attachments.CreatePresigned(r.Context(), vehicleID, requests)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, results)
}

// confirm commits a pending presigned upload.
func (h *AttachmentHandler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	attachment, err := h.attachments.Confirm(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}

// update adds multipart files and deletes the attachments listed in the
// delete_ids form field. Blob cleanup failures are reported in the response,
// not as request errors.
func (h *AttachmentHandler) update(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	uploads, cleanup, err := h.parseUploads(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanup()

	var deleteIDs []int64
	for _, raw := range r.MultipartForm.Value["delete_ids"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				writeError(w, h.logger, domain.NewDomainError(domain.ErrValidation, "invalid delete id", part))
				return
			}
			deleteIDs = append(deleteIDs, id)
		}
	}

	added, failures, err := h.attachments.Update(r.Context(), service.UpdateAttachmentsInput{
		VehicleID: vehicleID,
		Add:       uploads,
		DeleteIDs: deleteIDs,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Added: added, Failures: failures})
}

func (h *AttachmentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	attachment, err := h.attachments.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}

func (h *AttachmentHandler) listByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	attachments, err := h.attachments.ListByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

func (h *AttachmentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	failure, err := h.attachments.Delete(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if failure != nil {
		writeJSON(w, http.StatusOK, updateResponse{Failures: []service.CleanupFailure{*failure}})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseUploads reads the multipart form and opens each file part. The
// returned cleanup closes all opened parts; the caller defers it.
func (h *AttachmentHandler) parseUploads(w http.ResponseWriter, r *http.Request) ([]service.DirectUpload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, func() {}, domain.NewDomainError(domain.ErrValidation, "malformed multipart body", "")
	}

	var (
		uploads []service.DirectUpload
		closers []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, domain.NewDomainError(domain.ErrValidation, "unreadable file part", fh.Filename)
		}
		closers = append(closers, f.Close)

		contentType := fh.Header.Get("Content-Type")
		uploads = append(uploads, service.DirectUpload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Type:        attachmentTypeFor(contentType),
			Reader:      f,
			Size:        fh.Size,
		})
	}

	return uploads, cleanup, nil
}

// attachmentTypeFor categorizes a part by its declared content type.
func attachmentTypeFor(contentType string) domain.AttachmentType {
	if strings.HasPrefix(contentType, "image/") {
		return domain.AttachmentImage
	}
	return domain.AttachmentFile
}

// Package handler provides the HTTP layer of the Meridian back office:
// JSON request decoding, chi routing, and the mapping from domain errors to
// HTTP status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
	"github.com/meridian-motors/meridian-backoffice/internal/storage"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps an error to an HTTP status and writes the JSON envelope.
// Unrecognized errors become 500 with a generic message so internals never
// leak to clients.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusForError(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
		msg = "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

// statusForError maps domain and service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	// 404
	case errors.Is(err, domain.ErrVehicleNotFound),
		errors.Is(err, domain.ErrClientNotFound),
		errors.Is(err, domain.ErrSaleNotFound),
		errors.Is(err, domain.ErrFinancingNotFound),
		errors.Is(err, domain.ErrMaintenanceNotFound),
		errors.Is(err, domain.ErrAttachmentNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, storage.ErrBlobNotFound):
		return http.StatusNotFound

	// 409: uniqueness and concurrency conflicts
	case errors.Is(err, domain.ErrChassisTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrFinancingActiveExists),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, service.ErrVehicleBusy):
		return http.StatusConflict

	// 422: the request is well-formed but the lifecycle rejects it
	case errors.Is(err, domain.ErrVehicleNotAvailable),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrSaleAlreadyCanceled),
		errors.Is(err, domain.ErrMaintenanceAlreadyClosed),
		errors.Is(err, domain.ErrUploadNotPending):
		return http.StatusUnprocessableEntity

	// 400
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, storage.ErrDirectUploadUnsupported),
		errors.Is(err, storage.ErrPresignUnsupported),
		errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest

	// 401
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// 502: the blob backend failed, not us
	case errors.Is(err, domain.ErrStorageWrite):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewDomainError(domain.ErrValidation, "malformed JSON body", "")
	}
	return nil
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewDomainError(domain.ErrValidation, "invalid id", raw)
	}
	return id, nil
}

// pageParams parses offset/limit query parameters into ListOptions.
func pageParams(r *http.Request) repository.ListOptions {
	opts := repository.ListOptions{}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}
	opts.OrderBy = r.URL.Query().Get("order_by")
	opts.Descending = r.URL.Query().Get("order") == "desc"
	return opts
}

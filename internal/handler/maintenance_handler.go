package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// MaintenanceHandler handles maintenance record requests. DELETE closes the
// record instead of removing it; the row stays as per-vehicle shop history.
type MaintenanceHandler struct {
	maintenances *service.MaintenanceService
	logger       zerolog.Logger
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(maintenances *service.MaintenanceService, logger zerolog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenances: maintenances,
		logger:       logger.With().Str("handler", "maintenance").Logger(),
	}
}

// maintenanceRequest is the JSON body for open and update.
type maintenanceRequest struct {
	VehicleID      int64  `json:"vehicle_id"`
	AdditionalInfo string `json:"additional_info"`
}

// RegisterRoutes registers maintenance routes.
func (h *MaintenanceHandler) RegisterRoutes(r chi.Router) {
	r.Route("/maintenances", func(r chi.Router) {
		r.Post("/", h.open)
		r.Get("/", h.list)
		r.Get("/vehicle/{id}", h.listByVehicle)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.updateInfo)
		r.Delete("/{id}", h.close)
	})
}

func (h *MaintenanceHandler) open(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	maintenance, err := h.maintenances.Open(r.Context(), req.VehicleID, req.AdditionalInfo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, maintenance)
}

func (h *MaintenanceHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	maintenance, err := h.maintenances.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, maintenance)
}

func (h *MaintenanceHandler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.maintenances.List(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listByVehicle returns the shop history of one vehicle, open visits included.
func (h *MaintenanceHandler) listByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	maintenances, err := h.maintenances.ListByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, maintenances)
}

func (h *MaintenanceHandler) updateInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	maintenance, err := h.maintenances.UpdateInfo(r.Context(), id, req.AdditionalInfo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, maintenance)
}

// close soft-closes the record: the end date is set, the vehicle is released,
// and the row survives.
func (h *MaintenanceHandler) close(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	maintenance, err := h.maintenances.Close(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, maintenance)
}

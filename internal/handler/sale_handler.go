package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// SaleHandler handles sale lifecycle requests.
type SaleHandler struct {
	sales  *service.SaleService
	logger zerolog.Logger
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(sales *service.SaleService, logger zerolog.Logger) *SaleHandler {
	return &SaleHandler{
		sales:  sales,
		logger: logger.With().Str("handler", "sale").Logger(),
	}
}

// saleRequest is the JSON body for create and update.
type saleRequest struct {
	ClientID  int64             `json:"client_id"`
	VehicleID int64             `json:"vehicle_id"`
	Status    domain.SaleStatus `json:"status"`
}

// RegisterRoutes registers sale routes.
func (h *SaleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/vehicle/{id}", h.listByVehicle)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
	})
}

func (h *SaleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Status == "" {
		req.Status = domain.SaleReserved
	}

	sale, err := h.sales.Create(r.Context(), service.CreateSaleInput{
		ClientID:  req.ClientID,
		VehicleID: req.VehicleID,
		Status:    req.Status,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *SaleHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *SaleHandler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.sales.List(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listByVehicle returns the sale history of one vehicle.
func (h *SaleHandler) listByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sales, err := h.sales.ListByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *SaleHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sale, err := h.sales.Update(r.Context(), service.UpdateSaleInput{
		ID:        id,
		ClientID:  req.ClientID,
		VehicleID: req.VehicleID,
		Status:    req.Status,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

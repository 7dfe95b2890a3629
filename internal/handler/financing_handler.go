package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// FinancingHandler handles financing contract requests.
type FinancingHandler struct {
	financings *service.FinancingService
	logger     zerolog.Logger
}

// NewFinancingHandler creates a new financing handler.
func NewFinancingHandler(financings *service.FinancingService, logger zerolog.Logger) *FinancingHandler {
	return &FinancingHandler{
		financings: financings,
		logger:     logger.With().Str("handler", "financing").Logger(),
	}
}

// financingRequest is the JSON body for create and update.
type financingRequest struct {
	ClientID             int64     `json:"client_id"`
	VehicleID            int64     `json:"vehicle_id"`
	TotalAmount          int64     `json:"total_amount"`
	DownPayment          int64     `json:"down_payment"`
	InstallmentCount     int       `json:"installment_count"`
	InstallmentValue     int64     `json:"installment_value"`
	AnnualInterestRate   float64   `json:"annual_interest_rate"`
	ContractDate         time.Time `json:"contract_date"`
	FirstInstallmentDate time.Time `json:"first_installment_date"`
}

func (req financingRequest) terms() service.FinancingTerms {
	return service.FinancingTerms{
		TotalAmount:          req.TotalAmount,
		DownPayment:          req.DownPayment,
		InstallmentCount:     req.InstallmentCount,
		InstallmentValue:     req.InstallmentValue,
		AnnualInterestRate:   req.AnnualInterestRate,
		ContractDate:         req.ContractDate,
		FirstInstallmentDate: req.FirstInstallmentDate,
	}
}

// financingStatusRequest is the JSON body for status changes.
type financingStatusRequest struct {
	Status domain.FinancingStatus `json:"status"`
}

// RegisterRoutes registers financing routes.
func (h *FinancingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/financing", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/vehicle/{id}", h.listByVehicle)
		r.Get("/vehicle/{id}/active", h.activeByVehicle)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Patch("/{id}/status", h.updateStatus)
	})
}

func (h *FinancingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req financingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	financing, err := h.financings.Create(r.Context(), service.CreateFinancingInput{
		ClientID:  req.ClientID,
		VehicleID: req.VehicleID,
		Terms:     req.terms(),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, financing)
}

func (h *FinancingHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	financing, err := h.financings.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, financing)
}

func (h *FinancingHandler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.financings.List(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// listByVehicle returns all contracts ever opened against one vehicle.
func (h *FinancingHandler) listByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	financings, err := h.financings.ListByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, financings)
}

// activeByVehicle returns the single non-canceled contract, or 404.
func (h *FinancingHandler) activeByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	financing, err := h.financings.FindActiveByVehicle(r.Context(), vehicleID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, financing)
}

func (h *FinancingHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req financingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	financing, err := h.financings.Update(r.Context(), service.UpdateFinancingInput{
		ID:        id,
		ClientID:  req.ClientID,
		VehicleID: req.VehicleID,
		Terms:     req.terms(),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, financing)
}

func (h *FinancingHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req financingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	financing, err := h.financings.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, financing)
}

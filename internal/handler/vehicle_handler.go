package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// VehicleHandler handles vehicle registry requests.
type VehicleHandler struct {
	vehicles *service.VehicleService
	logger   zerolog.Logger
}

// NewVehicleHandler creates a new vehicle handler.
func NewVehicleHandler(vehicles *service.VehicleService, logger zerolog.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicles: vehicles,
		logger:   logger.With().Str("handler", "vehicle").Logger(),
	}
}

// vehicleRequest is the JSON body for create and update.
type vehicleRequest struct {
	Brand        string                  `json:"brand"`
	Model        string                  `json:"model"`
	ModelYear    int                     `json:"model_year"`
	Chassis      string                  `json:"chassis"`
	Plate        string                  `json:"plate"`
	Color        string                  `json:"color"`
	Mileage      int64                   `json:"mileage"`
	Price        int64                   `json:"price"`
	Fuel         domain.FuelType         `json:"fuel"`
	Transmission domain.TransmissionType `json:"transmission"`
	Doors        int                     `json:"doors"`
	Motor        string                  `json:"motor"`
	Power        string                  `json:"power"`
}

func (req vehicleRequest) toInput() service.CreateVehicleInput {
	return service.CreateVehicleInput{
		Brand:        req.Brand,
		Model:        req.Model,
		ModelYear:    req.ModelYear,
		Chassis:      req.Chassis,
		Plate:        req.Plate,
		Color:        req.Color,
		Mileage:      req.Mileage,
		Price:        req.Price,
		Fuel:         req.Fuel,
		Transmission: req.Transmission,
		Doors:        req.Doors,
		Motor:        req.Motor,
		Power:        req.Power,
	}
}

// RegisterRoutes registers vehicle routes.
func (h *VehicleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/vehicles", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.search)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *VehicleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	vehicle, err := h.vehicles.Create(r.Context(), req.toInput())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *VehicleHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	vehicle, err := h.vehicles.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := service.SearchVehiclesInput{
		Filter: domain.VehicleFilter{
			Brand:  q.Get("brand"),
			Model:  q.Get("model"),
			Status: domain.VehicleStatus(q.Get("status")),
		},
		Page: pageParams(r),
	}

	// Chassis lookup short-circuits the search.
	if chassis := q.Get("chassis"); chassis != "" {
		vehicle, err := h.vehicles.GetByChassis(r.Context(), chassis)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, vehicle)
		return
	}

	result, err := h.vehicles.Search(r.Context(), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *VehicleHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	vehicle, err := h.vehicles.Update(r.Context(), service.UpdateVehicleInput{
		ID:                 id,
		CreateVehicleInput: req.toInput(),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.vehicles.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

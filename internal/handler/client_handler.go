package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// ClientHandler handles client registry requests.
type ClientHandler struct {
	clients *service.ClientService
	logger  zerolog.Logger
}

// NewClientHandler creates a new client handler.
func NewClientHandler(clients *service.ClientService, logger zerolog.Logger) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		logger:  logger.With().Str("handler", "client").Logger(),
	}
}

// clientRequest is the JSON body for create and update.
type clientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// RegisterRoutes registers client routes.
func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *ClientHandler) create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	client, err := h.clients.Create(r.Context(), service.CreateClientInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	client, err := h.clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.clients.List(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ClientHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	client, err := h.clients.Update(r.Context(), service.UpdateClientInput{
		ID: id,
		CreateClientInput: service.CreateClientInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.clients.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

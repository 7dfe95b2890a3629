package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/service"
)

// AuthHandler handles authentication and account management requests.
type AuthHandler struct {
	users  *service.UserService
	logger zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *service.UserService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		logger: logger.With().Str("handler", "auth").Logger(),
	}
}

// loginRequest is the JSON body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerRequest is the JSON body for account creation.
type registerRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// RegisterPublicRoutes registers routes that work without a token.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.login)
}

// RegisterAdminRoutes registers account management routes. The router mounts
// them behind the ADMIN role.
func (h *AuthHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.register)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	output, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, output)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) list(w http.ResponseWriter, r *http.Request) {
	result, err := h.users.List(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

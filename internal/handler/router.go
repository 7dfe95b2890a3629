package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/auth"
	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/metrics"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// Router assembles the HTTP surface of the back office.
type Router struct {
	config RouterConfig
	logger zerolog.Logger
}

// RouterConfig contains the handlers and infrastructure the router mounts.
type RouterConfig struct {
	AuthHandler        *AuthHandler
	VehicleHandler     *VehicleHandler
	ClientHandler      *ClientHandler
	SaleHandler        *SaleHandler
	FinancingHandler   *FinancingHandler
	MaintenanceHandler *MaintenanceHandler
	AttachmentHandler  *AttachmentHandler

	TokenManager *auth.TokenManager
	Metrics      *metrics.Metrics
	MetricsPath  string
	Database     repository.DatabaseHealth

	// LocalFilesDir serves stored blobs under /files when the local backend
	// is active. Empty when the S3 backend serves blobs itself.
	LocalFilesDir string

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		config: config,
		logger: config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the assembled HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	if rt.config.Metrics != nil {
		r.Use(rt.config.Metrics.HTTPMiddleware)
	}

	// Operational endpoints, no auth.
	r.Get("/health", rt.handleHealth)
	if rt.config.Metrics != nil {
		path := rt.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, rt.config.Metrics.Handler())
	}

	// Local backend blob serving.
	if rt.config.LocalFilesDir != "" {
		fs := http.StripPrefix("/files/", http.FileServer(http.Dir(rt.config.LocalFilesDir)))
		r.Get("/files/*", fs.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		rt.config.AuthHandler.RegisterPublicRoutes(r)

		// Everything else requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(rt.config.TokenManager))

			rt.config.VehicleHandler.RegisterRoutes(r)
			rt.config.ClientHandler.RegisterRoutes(r)
			rt.config.SaleHandler.RegisterRoutes(r)
			rt.config.FinancingHandler.RegisterRoutes(r)
			rt.config.MaintenanceHandler.RegisterRoutes(r)
			rt.config.AttachmentHandler.RegisterRoutes(r)

			// Account management is admin-only.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(domain.RoleAdmin))
				rt.config.AuthHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r
}

// handleHealth reports process and database health.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	db := "ok"
	if rt.config.Database != nil {
		if err := rt.config.Database.Health(r.Context()); err != nil {
			rt.logger.Error().Err(err).Msg("database health check failed")
			status = http.StatusServiceUnavailable
			db = "unavailable"
		}
	}
	writeJSON(w, status, map[string]string{
		"status":   statusWord(status),
		"database": db,
	})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}

// requestLogger logs one line per request in the shared zerolog format.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

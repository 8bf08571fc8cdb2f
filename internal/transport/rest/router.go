package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/helpdesk-access/internal/auth"
	"github.com/frahmantamala/helpdesk-access/internal/catalog"
	"github.com/frahmantamala/helpdesk-access/internal/subject"
	"github.com/frahmantamala/helpdesk-access/internal/transport/middleware"
	"github.com/frahmantamala/helpdesk-access/internal/transport/swagger"
)

// RouterConfig carries everything RegisterAllRoutes wires together. Nil
// handlers leave their routes unmounted.
type RouterConfig struct {
	DB             *sql.DB
	StoreKind      string
	AllowedOrigins string
	RateLimit      int
	Production     bool
	OpenAPIPath    string

	CatalogHandler *catalog.Handler
	SubjectHandler *subject.Handler
	Enforcer       *auth.Enforcer
	Logger         *slog.Logger
}

func RegisterAllRoutes(router chi.Router, cfg RouterConfig) {
	healthHandler := NewHealthHandler(cfg.DB, cfg.StoreKind)
	openAPIPath := cfg.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = DefaultOpenAPIPath
	}

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(cfg.Logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.SecureHeaders(cfg.Production))
	router.Use(middleware.SubjectContext)
	router.Use(middleware.LoggingMiddleware(cfg.Logger))

	// Serve the OpenAPI document at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheckHandler)
		r.Get("/ping", healthHandler.PingHandler)

		if cfg.CatalogHandler != nil {
			r.Route("/catalog", func(cr chi.Router) {
				cr.Get("/roles", cfg.CatalogHandler.GetRoles)
				cr.Get("/permissions", cfg.CatalogHandler.GetPermissions)
			})
		}

		if cfg.SubjectHandler != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(middleware.RequireSubject)
				pr.Use(middleware.RateLimit(cfg.RateLimit))

				var requireRead, requireManage func(http.Handler) http.Handler
				if cfg.Enforcer != nil {
					requireRead = cfg.Enforcer.Require(catalog.UsersRead)
					requireManage = cfg.Enforcer.Require(catalog.UsersManage)
				}
				cfg.SubjectHandler.Routes(pr, requireRead, requireManage)
			})
		}
	})
}

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-clinic-auth/models"
)

// auditCompressionLevel is the gzip level for audit listings, which are the
// only large responses the service produces.
const auditCompressionLevel = 5

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(withRequestMeta)
	if h.requestTimeout > 0 {
		router.Use(middleware.Timeout(h.requestTimeout))
	}

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/auth/login", h.login)
		r.Post("/api/auth/refresh", h.refresh)
		r.Get("/api/version", h.getServerVersion)
	})

	// routes with authorization
	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/api/auth/logout", h.logout)
		r.Get("/api/auth/session", h.session)
		r.Delete("/api/auth/account", h.deleteAccount)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(models.RoleAdmin))
			r.Use(middleware.Compress(auditCompressionLevel, "application/json"))
			r.Get("/api/audit/entries", h.listAuditEntries)
			r.Get("/api/audit/verify", h.verifyAuditChain)
		})
	})

	router.NotFound(notFound)
	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}

package members

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
)

// MeRoutes returns the own-profile routes.
//
// When mounted at /api/me:
//   - GET /api/me - own profile
//   - PUT /api/me - update name, phone, address
func MeRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.me)
	r.Put("/", h.updateMe)
	return r
}

// Routes returns the roster routes.
//
// When mounted at /api/members:
//   - GET /api/members - active roster
//   - GET /api/members/{memberID}/history - member's writes (self or admin)
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.roster)
	r.Get("/{memberID}/history", h.memberHistory)
	return r
}

// AdminRoutes returns the admin-only routes.
//
// When mounted at /api/admin:
//   - GET  /api/admin/members
//   - POST /api/admin/members/{id}/role
//   - POST /api/admin/members/{id}/status
//   - GET  /api/admin/audit
func AdminRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))
	r.Get("/members", h.listAll)
	r.Post("/members/{id}/role", h.setRole)
	r.Post("/members/{id}/status", h.setStatus)
	r.Get("/audit", h.auditEvents)
	return r
}

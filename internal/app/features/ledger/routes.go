// internal/app/features/ledger/routes.go
package ledgerfeature

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
)

// Routes returns the ledger routes. Access is restricted to admins.
//
// When mounted at /api/admin/ledger:
//   - GET /api/admin/ledger             - entries, newest first
//   - GET /api/admin/ledger/{requestID} - one entry by its X-Ledger-ID
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(models.RoleAdmin))

	r.Get("/", h.list)
	r.Get("/{requestID}", h.detail)
	return r
}

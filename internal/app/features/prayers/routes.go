package prayers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/apicors"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"go.uber.org/zap"
)

// Routes returns the session-authenticated prayer routes.
//
// When mounted at /api/prayers:
//   - GET  /api/prayers/today
//   - GET  /api/prayers/{date}
//   - POST /api/prayers/record
//   - GET  /api/prayers/{date}/members/{memberID}/history
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/today", h.today)
	r.Post("/record", h.record)
	r.Get("/{date}", h.day)
	r.Get("/{date}/members/{memberID}/history", h.history)
	return r
}

// APIRoutes returns the API key prayer routes.
//
// When mounted at /api/v1/prayers:
//   - POST /api/v1/prayers/record
//   - GET  /api/v1/prayers/{date}
//
// Authentication is via API key (Bearer token in Authorization header).
// With no origins, CORS is permissive since the key authenticates.
func APIRoutes(h *Handler, apiKey string, origins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	if len(origins) > 0 {
		r.Use(apicors.MiddlewareWithOrigins(origins...))
	} else {
		r.Use(apicors.Middleware())
	}
	r.Use(auth.APIKeyAuth(apiKey, logger))

	r.Post("/record", h.apiRecord)
	r.Get("/{date}", h.apiDay)
	return r
}

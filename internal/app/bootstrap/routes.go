// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	authgooglefeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/authgoogle"
	errorsfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/errors"
	healthfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/health"
	ledgerfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/ledger"
	logoutfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/logout"
	membersfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/members"
	prayersfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/prayers"
	attendancestore "github.com/tanvirrrhasan/namajtracker/internal/app/store/attendance"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/attendancehistory"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/audit"
	ledgerstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/ledger"
	memberstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/members"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/oauthstate"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/jsonutil"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/ledger"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/metrics"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/tracker"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/txn"
	"go.uber.org/zap"
)

// csrfExemptPrefix covers the API-key surface, which carries no session.
const csrfExemptPrefix = "/api/v1/"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// Two surfaces share the router:
//   - /api/* (except /api/v1): session cookie + CSRF, restrictive CORS
//   - /api/v1/*: API key auth, no CSRF, permissive or configured CORS
//
// Both reach the same tracker.Service, so the slot lock applies to both.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh member data on each request so role changes and disabling take
	// effect without waiting for the cookie to expire.
	sessionMgr.SetMemberFetcher(memberstore.NewFetcher(deps.MongoDatabase, logger))

	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger)
	auditStore := audit.New(db)
	auditLogger := newAuditLogger(appCfg, deps, logger)

	members := memberstore.New(db)
	collector := metrics.New()
	svc := tracker.New(
		members,
		attendancestore.New(db),
		attendancehistory.New(db),
		txn.NewRunner(db, logger),
		collector,
		logger,
	)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(sessionMgr.LoadSessionMember)
	r.Use(csrfMiddleware(newCSRF(secure, appCfg, logger)))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", collector.Handler())
	}

	// Google OAuth (only mount if configured)
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
		googleHandler := authgooglefeature.NewHandler(
			members,
			sessionMgr,
			errLog,
			auditLogger,
			oauthstate.New(db),
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL,
			logger,
		)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
	}

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLogger, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Browser clients fetch the token here and echo it in X-CSRF-Token.
	r.Get("/api/csrf", func(w http.ResponseWriter, req *http.Request) {
		jsonutil.OK(w, map[string]string{"csrf_token": csrf.Token(req)})
	})

	prayersHandler := prayersfeature.NewHandler(svc, location(appCfg), errLog, logger)
	r.Mount("/api/prayers", prayersfeature.Routes(prayersHandler, sessionMgr))

	membersHandler := membersfeature.NewHandler(members, svc, auditLogger, auditStore, errLog, logger)
	r.Mount("/api/members", membersfeature.Routes(membersHandler, sessionMgr))
	r.Mount("/api/me", membersfeature.MeRoutes(membersHandler, sessionMgr))
	r.Mount("/api/admin", membersfeature.AdminRoutes(membersHandler, sessionMgr))

	// API error ledger for machine clients, browsable at /api/admin/ledger.
	ledgerStore := ledgerstore.New(db)
	ledgerHandler := ledgerfeature.NewHandler(ledgerStore, errLog, logger)
	r.Mount("/api/admin/ledger", ledgerfeature.Routes(ledgerHandler, sessionMgr))

	// Machine clients (only mount if an API key is configured)
	if appCfg.APIKey != "" {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(ledger.Middleware(ledger.Config{
				Store:          ledgerStore,
				Logger:         logger,
				MaxBodyPreview: 500,
				OnlyErrors:     !appCfg.LedgerAll,
			}))
			r.Mount("/prayers", prayersfeature.APIRoutes(prayersHandler, appCfg.APIKey, appCfg.APICORSOrigins, logger))
		})
	}

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}

// newCSRF builds the gorilla/csrf middleware for session-authenticated
// writes. The cookie name is app specific to avoid collisions with other
// services on the same domain.
func newCSRF(secure bool, appCfg AppConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("namajtracker_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			jsonutil.Error(w, http.StatusForbidden, "csrf_failed", "CSRF token invalid or missing")
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		opts = append(opts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		opts = append(opts, csrf.Domain(appCfg.SessionDomain))
	}
	return csrf.Protect([]byte(appCfg.CSRFKey), opts...)
}

// csrfMiddleware applies protect to everything except the API-key surface.
func csrfMiddleware(protect func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.HasPrefix(req.URL.Path, csrfExemptPrefix) {
				next.ServeHTTP(w, req)
				return
			}
			protected.ServeHTTP(w, req)
		})
	}
}

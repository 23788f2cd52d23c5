// internal/app/features/authgoogle/authgoogle.go
package authgoogle

// Terminology: Member Identifiers
//   - MemberID / memberID / member_id: The MongoDB ObjectID (_id) of a member record
//   - Identity / identity: Google's stable subject id ("id" in the userinfo response)

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/errors"
	memberstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/members"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/oauthstate"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auditlog"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler provides Google OAuth handlers.
type Handler struct {
	members         *memberstore.Store
	sessionMgr      *auth.SessionManager
	errLog          *errorsfeature.ErrorLogger
	auditLogger     *auditlog.Logger
	oauthStateStore *oauthstate.Store
	oauthConfig     *oauth2.Config
	userInfoURL     string
	logger          *zap.Logger
}

// NewHandler creates a new Google OAuth Handler.
func NewHandler(
	members *memberstore.Store,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	oauthStateStore *oauthstate.Store,
	clientID string,
	clientSecret string,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		members:         members,
		sessionMgr:      sessionMgr,
		errLog:          errLog,
		auditLogger:     auditLogger,
		oauthStateStore: oauthStateStore,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		logger:      logger,
	}
}

// Routes returns a chi.Router with Google OAuth routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.startAuth)
	r.Get("/callback", h.handleCallback)
	return r
}

// fail sends the browser back to the app with an error code.
func fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusSeeOther)
}

// startAuth initiates the Google OAuth flow.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := h.oauthStateStore.Issue(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to store oauth state", err)
		fail(w, r, "oauth_error")
		return
	}

	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// handleCallback processes the Google OAuth callback: it signs the member
// in, creating the member on first login or linking the Google identity to
// a pre-registered member with the same verified email.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ok, err := h.oauthStateStore.Verify(ctx, r.URL.Query().Get("state"))
	if err != nil {
		h.errLog.Log(r, "failed to verify oauth state", err)
		fail(w, r, "oauth_error")
		return
	}
	if !ok {
		h.logger.Warn("invalid oauth state")
		h.auditLogger.LoginFailedOAuth(ctx, r, "invalid_state")
		fail(w, r, "invalid_state")
		return
	}

	// Check for error from Google
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from google", zap.String("error", errMsg))
		h.auditLogger.LoginFailedOAuth(ctx, r, errMsg)
		fail(w, r, errMsg)
		return
	}

	token, err := h.oauthConfig.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.errLog.Log(r, "failed to exchange code", err)
		h.auditLogger.LoginFailedOAuth(ctx, r, "token_exchange_failed")
		fail(w, r, "token_exchange_failed")
		return
	}

	info, err := h.getUserInfo(ctx, token)
	if err != nil {
		h.errLog.Log(r, "failed to get user info", err)
		h.auditLogger.LoginFailedOAuth(ctx, r, "userinfo_failed")
		fail(w, r, "userinfo_failed")
		return
	}

	claims := memberstore.Claims{Identity: info.ID, Name: info.Name}
	// Only a verified address may link to an existing member.
	if info.VerifiedEmail {
		claims.Email = info.Email
	}

	prior, err := h.members.ResolveByIdentity(ctx, info.ID)
	if err != nil {
		h.errLog.Log(r, "failed to resolve identity", err)
		fail(w, r, "database_error")
		return
	}

	member, created, err := h.members.SignIn(ctx, claims)
	if err != nil {
		h.errLog.Log(r, "failed to sign in member", err)
		fail(w, r, "database_error")
		return
	}

	if !member.IsActive() {
		h.auditLogger.LoginFailedMemberDisabled(ctx, r, member.ID, info.ID)
		fail(w, r, "account_disabled")
		return
	}

	switch {
	case created:
		h.auditLogger.MemberSelfCreated(ctx, r, member.ID, member.Role)
	case prior == nil:
		h.auditLogger.MemberLinked(ctx, r, member.ID, info.ID)
	}

	if _, err := h.sessionMgr.CreateSession(w, r, member.ID, info.ID, member.Role); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		fail(w, r, "session_error")
		return
	}

	h.auditLogger.LoginSuccess(ctx, r, member.ID, info.ID, claims.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GoogleUserInfo represents user info from Google.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// getUserInfo fetches user info from Google.
func (h *Handler) getUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, token)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}
	if userInfo.ID == "" {
		return nil, fmt.Errorf("userinfo: missing subject id")
	}

	return &userInfo, nil
}

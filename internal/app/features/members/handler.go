// Package members serves member profiles, the roster and admin member
// management.
package members

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/errors"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/audit"
	memberstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/members"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auditlog"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/authz"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/jsonutil"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/tracker"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HistoryReader lists a member's attendance writes.
type HistoryReader interface {
	MemberHistory(ctx context.Context, memberID primitive.ObjectID, from, to string, limit, offset int64) ([]models.AttendanceHistoryEntry, error)
}

// Handler serves the member endpoints.
type Handler struct {
	members     *memberstore.Store
	history     HistoryReader
	auditLogger *auditlog.Logger
	auditStore  *audit.Store
	errLog      *errorsfeature.ErrorLogger
	logger      *zap.Logger
}

// NewHandler creates a members Handler.
func NewHandler(
	members *memberstore.Store,
	history HistoryReader,
	auditLogger *auditlog.Logger,
	auditStore *audit.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		members:     members,
		history:     history,
		auditLogger: auditLogger,
		auditStore:  auditStore,
		errLog:      errLog,
		logger:      logger,
	}
}

// RosterEntry is the public view of a member shown to everyone signed in.
type RosterEntry struct {
	ID       primitive.ObjectID `json:"id"`
	FullName string             `json:"full_name"`
	Role     string             `json:"role"`
}

// roster lists active members ordered by name.
func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	list, err := h.members.ListActive(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list members", err)
		jsonutil.InternalError(w, "failed to list members")
		return
	}

	out := make([]RosterEntry, len(list))
	for i, m := range list {
		out[i] = RosterEntry{ID: m.ID, FullName: m.FullName, Role: m.Role}
	}
	jsonutil.OK(w, out)
}

// memberHistory lists one member's writes across days, newest first.
// Query: from, to (YYYY-MM-DD), limit, offset.
func (h *Handler) memberHistory(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid member id")
		return
	}
	if !authz.CanViewMember(r, memberID) {
		jsonutil.Forbidden(w, "only the member or an admin can view this history")
		return
	}

	q := r.URL.Query()
	limit, offset := pageParams(r)
	entries, err := h.history.MemberHistory(r.Context(), memberID, q.Get("from"), q.Get("to"), limit, offset)
	switch {
	case errors.Is(err, tracker.ErrInvalidDate):
		jsonutil.Error(w, http.StatusBadRequest, "invalid_date", "from and to must be YYYY-MM-DD")
		return
	case err != nil:
		h.errLog.Log(r, "failed to list member history", err)
		jsonutil.ServiceUnavailable(w, "storage temporarily unavailable, try again", 0)
		return
	}
	jsonutil.OK(w, entries)
}

// me returns the signed-in member's own profile.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	_, _, memberID, _ := authz.MemberCtx(r)
	m, err := h.members.GetByID(r.Context(), memberID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		jsonutil.NotFound(w, "member not found")
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to load profile", err)
		jsonutil.InternalError(w, "failed to load profile")
		return
	}
	jsonutil.OK(w, m)
}

// profileInput is the body of PUT /api/me. Omitted fields are unchanged.
type profileInput struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// changed lists the fields present in the request, for the audit log.
func (in profileInput) changed() string {
	var fields []string
	if in.FullName != nil {
		fields = append(fields, "full_name")
	}
	if in.Phone != nil {
		fields = append(fields, "phone")
	}
	if in.Address != nil {
		fields = append(fields, "address")
	}
	return strings.Join(fields, ",")
}

// updateMe edits the signed-in member's name, phone and address.
func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var in profileInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	fields := in.changed()
	if fields == "" {
		jsonutil.BadRequest(w, "nothing to update")
		return
	}

	_, _, memberID, _ := authz.MemberCtx(r)
	m, err := h.members.UpdateProfile(r.Context(), memberID, memberstore.ProfileUpdate{
		FullName: in.FullName,
		Phone:    in.Phone,
		Address:  in.Address,
	})
	switch {
	case errors.Is(err, memberstore.ErrNameRequired):
		jsonutil.ValidationError(w, map[string]string{"full_name": "Full name is required."})
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		jsonutil.NotFound(w, "member not found")
		return
	case err != nil:
		h.errLog.Log(r, "failed to update profile", err)
		jsonutil.InternalError(w, "failed to update profile")
		return
	}

	h.auditLogger.ProfileUpdated(r.Context(), r, memberID, fields)
	jsonutil.OK(w, m)
}

// pageParams reads limit and offset from the query string. Invalid or
// negative values fall back to zero, which the stores treat as defaults.
func pageParams(r *http.Request) (limit, offset int64) {
	q := r.URL.Query()
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v > 0 {
		limit = min(v, 500)
	}
	if v, err := strconv.ParseInt(q.Get("offset"), 10, 64); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

package members

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/audit"
	memberstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/members"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/authz"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/inputval"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/jsonutil"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// listAll returns every member with full details, active or not.
func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.members.ListAll(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to list members", err)
		jsonutil.InternalError(w, "failed to list members")
		return
	}
	jsonutil.OK(w, list)
}

type roleInput struct {
	Role string `json:"role" validate:"required,oneof=admin member" label:"Role"`
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=active disabled" label:"Status"`
}

// setRole grants or revokes the admin role.
func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var in roleInput
	if !decodeValid(w, r, &in, func() *inputval.Result { return inputval.Validate(in) }) {
		return
	}
	target, before, ok := h.loadTarget(w, r)
	if !ok {
		return
	}

	m, err := h.members.SetRole(r.Context(), target, in.Role)
	if !h.adminResult(w, r, err) {
		return
	}
	if before.Role != m.Role {
		_, _, actorID, _ := authz.MemberCtx(r)
		h.auditLogger.MemberRoleChanged(r.Context(), r, actorID, m.ID, before.Role, m.Role)
	}
	jsonutil.OK(w, m)
}

// setStatus activates or deactivates a member.
func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if !decodeValid(w, r, &in, func() *inputval.Result { return inputval.Validate(in) }) {
		return
	}
	target, before, ok := h.loadTarget(w, r)
	if !ok {
		return
	}

	m, err := h.members.SetStatus(r.Context(), target, in.Status)
	if !h.adminResult(w, r, err) {
		return
	}
	if before.Status != m.Status {
		_, _, actorID, _ := authz.MemberCtx(r)
		h.auditLogger.MemberStatusChanged(r.Context(), r, actorID, m.ID, before.Status, m.Status)
	}
	jsonutil.OK(w, m)
}

// decodeValid decodes the body into in and runs validate on the result.
// It writes the 400 response itself and returns false on failure.
func decodeValid(w http.ResponseWriter, r *http.Request, in any, validate func() *inputval.Result) bool {
	if err := jsonutil.Decode(w, r, in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return false
	}
	if res := validate(); res.HasErrors() {
		jsonutil.ValidationError(w, res.FieldMap())
		return false
	}
	return true
}

// loadTarget loads the member named in the path. It writes the error
// response itself on failure.
func (h *Handler) loadTarget(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, *models.Member, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid member id")
		return id, nil, false
	}

	before, err := h.members.GetByID(r.Context(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		jsonutil.NotFound(w, "member not found")
		return id, nil, false
	}
	if err != nil {
		h.errLog.Log(r, "failed to load member", err)
		jsonutil.InternalError(w, "failed to load member")
		return id, nil, false
	}
	return id, before, true
}

// adminResult writes the response for a failed role or status change and
// reports whether err was nil.
func (h *Handler) adminResult(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, memberstore.ErrLastAdmin):
		jsonutil.Error(w, http.StatusConflict, "last_admin", "at least one active admin must remain")
	case errors.Is(err, memberstore.ErrInvalidRole), errors.Is(err, memberstore.ErrInvalidStatus):
		jsonutil.BadRequest(w, err.Error())
	case errors.Is(err, mongo.ErrNoDocuments):
		jsonutil.NotFound(w, "member not found")
	default:
		h.errLog.Log(r, "failed to update member", err)
		jsonutil.InternalError(w, "failed to update member")
	}
	return false
}

// AuditPage is the audit log response.
type AuditPage struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
}

// auditEvents lists audit events, newest first.
// Query: category, event_type, member_id, limit, offset.
func (h *Handler) auditEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		Category:  q.Get("category"),
		EventType: q.Get("event_type"),
	}
	if v := q.Get("member_id"); v != "" {
		oid, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			jsonutil.BadRequest(w, "invalid member id")
			return
		}
		filter.MemberID = &oid
	}
	filter.Limit, filter.Offset = pageParams(r)

	events, err := h.auditStore.Query(r.Context(), filter)
	if err != nil {
		h.errLog.Log(r, "failed to query audit log", err)
		jsonutil.InternalError(w, "failed to query audit log")
		return
	}
	total, err := h.auditStore.CountByFilter(r.Context(), filter)
	if err != nil {
		h.logger.Warn("failed to count audit events", zap.Error(err))
		total = int64(len(events))
	}
	jsonutil.OK(w, AuditPage{Events: events, Total: total})
}

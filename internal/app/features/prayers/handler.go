// Package prayers serves the daily attendance view and prayer slot writes.
//
// Session endpoints (mounted at /api/prayers):
//   - GET  /today                             - daily view for the server's current date
//   - GET  /{date}                            - daily view with the caller's can_write flags
//   - POST /record                            - record a slot as the signed-in member
//   - GET  /{date}/members/{memberID}/history - writes to one record (owner or admin)
//
// API key endpoints (mounted at /api/v1/prayers) are for trusted devices
// such as a masjid kiosk that name the acting identity explicitly.
package prayers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/errors"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/authz"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/inputval"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/jsonutil"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/ledger"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/tracker"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// retryAfter is the hint sent with 503 responses.
const retryAfter = 5 * time.Second

// Handler serves the prayer endpoints.
type Handler struct {
	svc    *tracker.Service
	loc    *time.Location
	now    func() time.Time
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a prayers Handler. loc decides which calendar day
// "today" is; nil means UTC.
func NewHandler(svc *tracker.Service, loc *time.Location, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		svc:    svc,
		loc:    loc,
		now:    time.Now,
		errLog: errLog,
		logger: logger,
	}
}

// DayView is the daily attendance response.
type DayView struct {
	Date string             `json:"date"`
	Rows []tracker.DailyRow `json:"rows"`
}

// recordInput is the body of POST /record.
type recordInput struct {
	MemberID  string `json:"member_id" validate:"required,objectid" label:"Member"`
	Date      string `json:"date" validate:"required,isodate" label:"Date"`
	Prayer    string `json:"prayer" validate:"required,prayer" label:"Prayer"`
	Completed *bool  `json:"completed" label:"Completed"`
}

// parsed validates in and converts it to service arguments. It writes the
// 400 response itself and returns ok=false when in is invalid.
func (in recordInput) parsed(w http.ResponseWriter) (primitive.ObjectID, models.Prayer, bool) {
	res := inputval.Validate(in)
	fields := res.FieldMap()
	if in.Completed == nil {
		fields["completed"] = "Completed is required."
	}
	if len(fields) > 0 {
		jsonutil.ValidationError(w, fields)
		return primitive.NilObjectID, 0, false
	}
	memberID, _ := primitive.ObjectIDFromHex(in.MemberID)
	prayer, _ := models.ParsePrayer(in.Prayer)
	return memberID, prayer, true
}

// today serves the daily view for the current date in h.loc.
func (h *Handler) today(w http.ResponseWriter, r *http.Request) {
	h.serveDay(w, r, tracker.Today(h.now(), h.loc))
}

// day serves the daily view for the date in the path.
func (h *Handler) day(w http.ResponseWriter, r *http.Request) {
	h.serveDay(w, r, chi.URLParam(r, "date"))
}

func (h *Handler) serveDay(w http.ResponseWriter, r *http.Request, date string) {
	rows, err := h.svc.DailyAttendanceFor(r.Context(), authz.Identity(r), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, DayView{Date: date, Rows: rows})
}

// record sets one slot with the signed-in member as the actor.
//
// Request body:
//
//	{"member_id": "...", "date": "2026-03-14", "prayer": "fajr", "completed": true}
//
// Response (200 OK): the updated attendance record.
func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var in recordInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	memberID, prayer, ok := in.parsed(w)
	if !ok {
		return
	}

	rec, err := h.svc.RecordPrayer(r.Context(), authz.Identity(r), memberID, in.Date, prayer, *in.Completed)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, rec)
}

// history lists every permitted write to one record, oldest first.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		jsonutil.BadRequest(w, "invalid member id")
		return
	}
	if !authz.CanViewMember(r, memberID) {
		jsonutil.Forbidden(w, "only the member or an admin can view this history")
		return
	}

	entries, err := h.svc.History(r.Context(), memberID, chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, entries)
}

// writeError maps service errors to responses. Denials are routine and
// were already logged by the service.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrSlotLocked):
		ledger.SetErrorClass(r.Context(), "slot_locked")
		jsonutil.Error(w, http.StatusForbidden, "slot_locked", "already confirmed by member")
	case errors.Is(err, tracker.ErrActorUnresolved):
		ledger.SetErrorClass(r.Context(), "actor_unresolved")
		jsonutil.Error(w, http.StatusForbidden, "actor_unresolved", "please complete member setup")
	case errors.Is(err, tracker.ErrTargetNotFound):
		jsonutil.NotFound(w, "member not found")
	case errors.Is(err, tracker.ErrInvalidDate):
		jsonutil.Error(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
	case errors.Is(err, tracker.ErrInvalidPrayer):
		jsonutil.Error(w, http.StatusBadRequest, "invalid_prayer", "prayer must be one of fajr, dhuhr, asr, maghrib, isha")
	case errors.Is(err, tracker.ErrStorageUnavailable):
		jsonutil.ServiceUnavailable(w, "storage temporarily unavailable, try again", retryAfter)
	default:
		h.errLog.Log(r, "prayer request failed", err)
		jsonutil.InternalError(w, "internal error")
	}
}

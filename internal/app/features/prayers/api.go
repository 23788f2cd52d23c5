package prayers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/jsonutil"
)

// apiRecordInput is the body of POST /api/v1/prayers/record.
type apiRecordInput struct {
	ActorIdentity string `json:"actor_identity"`
	recordInput
}

// apiRecord sets one slot on behalf of an explicitly named identity.
//
// Request body:
//
//	{
//	    "actor_identity": "1098...",
//	    "member_id": "...",
//	    "date": "2026-03-14",
//	    "prayer": "isha",
//	    "completed": true
//	}
func (h *Handler) apiRecord(w http.ResponseWriter, r *http.Request) {
	var in apiRecordInput
	if err := jsonutil.Decode(w, r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	if in.ActorIdentity == "" {
		jsonutil.ValidationError(w, map[string]string{"actor_identity": "Actor identity is required."})
		return
	}
	memberID, prayer, ok := in.parsed(w)
	if !ok {
		return
	}

	rec, err := h.svc.RecordPrayer(r.Context(), in.ActorIdentity, memberID, in.Date, prayer, *in.Completed)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, rec)
}

// apiDay serves the daily view without viewer permissions.
func (h *Handler) apiDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	rows, err := h.svc.DailyAttendance(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonutil.OK(w, DayView{Date: date, Rows: rows})
}

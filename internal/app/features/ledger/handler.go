// internal/app/features/ledger/handler.go
package ledgerfeature

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/tanvirrrhasan/namajtracker/internal/app/features/errors"
	ledgerstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/ledger"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/jsonutil"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the machine-API ledger to admins.
type Handler struct {
	store  *ledgerstore.Store
	errLog *errorsfeature.ErrorLogger
	log    *zap.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(store *ledgerstore.Store, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		errLog: errLog,
		log:    logger,
	}
}

// Page is one page of ledger entries.
type Page struct {
	Entries []ledgerstore.Entry `json:"entries"`
	Total   int64               `json:"total"`
}

// list handles GET / with optional status_min, path, since (RFC 3339),
// limit and offset.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledgerstore.ListFilter{PathPrefix: q.Get("path")}

	if v := q.Get("status_min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 100 || n > 599 {
			jsonutil.ValidationError(w, map[string]string{"status_min": "must be an HTTP status code"})
			return
		}
		filter.StatusMin = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonutil.ValidationError(w, map[string]string{"since": "must be an RFC 3339 timestamp"})
			return
		}
		filter.Since = &t
	}
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v > 0 {
		filter.Limit = min(v, 500)
	}
	if v, err := strconv.ParseInt(q.Get("offset"), 10, 64); err == nil && v > 0 {
		filter.Offset = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.store.List(ctx, filter)
	if err != nil {
		h.unavailable(w, r, "list ledger entries", err)
		return
	}
	total, err := h.store.Count(ctx, filter)
	if err != nil {
		h.unavailable(w, r, "count ledger entries", err)
		return
	}
	jsonutil.OK(w, Page{Entries: entries, Total: total})
}

// detail handles GET /{requestID}.
func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	entry, err := h.store.GetByRequestID(ctx, chi.URLParam(r, "requestID"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		jsonutil.NotFound(w, "ledger entry not found")
		return
	}
	if err != nil {
		h.unavailable(w, r, "load ledger entry", err)
		return
	}
	jsonutil.OK(w, entry)
}

func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.errLog.Log(r, msg, err)
	jsonutil.ServiceUnavailable(w, "storage temporarily unavailable, try again", 5*time.Second)
}

// internal/app/system/ledger/middleware.go
package ledger

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	ledgerstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/ledger"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// RequestIDHeader carries the ledger request id back to the client.
const RequestIDHeader = "X-Ledger-ID"

type ctxKey int

const ctxKeyEntry ctxKey = iota

// Recorder persists ledger entries.
type Recorder interface {
	Create(ctx context.Context, entry ledgerstore.Entry) error
}

// Config holds configuration for the ledger middleware.
type Config struct {
	Store  Recorder
	Logger *zap.Logger

	// MaxBodyPreview caps the request and error-response bytes kept.
	// Zero disables body capture.
	MaxBodyPreview int

	// OnlyErrors skips requests that finished below 400.
	OnlyErrors bool
}

// Middleware records each request to the ledger after the handler returns.
// The write happens on its own goroutine so the response is not delayed.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := &ledgerstore.Entry{
				RequestID:       uuid.NewString(),
				ClientRequestID: r.Header.Get("X-Request-ID"),
				Method:          r.Method,
				Path:            r.URL.Path,
				Query:           r.URL.RawQuery,
				RemoteIP:        extractIP(r),
				StartedAt:       start.UTC(),
			}
			w.Header().Set(RequestIDHeader, entry.RequestID)

			if cfg.MaxBodyPreview > 0 && r.Body != nil && r.ContentLength != 0 {
				body, err := io.ReadAll(r.Body)
				if err == nil {
					entry.RequestBodySize = int64(len(body))
					entry.RequestBodyPreview = truncate(string(body), cfg.MaxBodyPreview)
					r.Body = io.NopCloser(bytes.NewReader(body))
				}
			}

			wrapped := &responseWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				keep:           cfg.MaxBodyPreview,
			}
			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), ctxKeyEntry, entry)))

			entry.StatusCode = wrapped.statusCode
			entry.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
			if entry.StatusCode < 400 {
				if cfg.OnlyErrors {
					return
				}
			} else {
				if entry.ErrorClass == "" {
					entry.ErrorClass = classify(entry.StatusCode)
				}
				entry.ErrorBody = truncate(wrapped.body.String(), cfg.MaxBodyPreview)
			}

			e := *entry
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
				defer cancel()
				if err := cfg.Store.Create(ctx, e); err != nil {
					cfg.Logger.Error("failed to store ledger entry",
						zap.String("request_id", e.RequestID),
						zap.Error(err))
				}
			}()
		})
	}
}

// SetErrorClass overrides the status-derived error class for this request.
func SetErrorClass(ctx context.Context, class string) {
	if entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry); ok {
		entry.ErrorClass = class
	}
}

// RequestID returns the ledger id of the current request, or "".
func RequestID(ctx context.Context) string {
	if entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry); ok {
		return entry.RequestID
	}
	return ""
}

func classify(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "validation"
	case status == http.StatusUnauthorized:
		return "auth"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= 500:
		return "internal"
	default:
		return "client_error"
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// responseWrapper captures the status code and, for failures, the head of
// the response body.
type responseWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	keep        int
	body        bytes.Buffer
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	if rw.statusCode >= 400 && rw.body.Len() < rw.keep {
		room := rw.keep - rw.body.Len()
		if room > len(b) {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	return rw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// extractIP extracts the client IP from the request.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

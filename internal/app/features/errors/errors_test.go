package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanvirrrhasan/namajtracker/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler()
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
}

func TestNotFound_Returns404(t *testing.T) {
	h := NewHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if code := testutil.ErrorCode(t, rec); code != "not_found" {
		t.Errorf("error = %q, want %q", code, "not_found")
	}
}

func TestMethodNotAllowed_Returns405(t *testing.T) {
	h := NewHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/members", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if code := testutil.ErrorCode(t, rec); code != "method_not_allowed" {
		t.Errorf("error = %q, want %q", code, "method_not_allowed")
	}
}

func TestErrorLogger_Log(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	errLog := NewErrorLogger(zap.New(core))

	req := httptest.NewRequest(http.MethodPost, "/api/prayers/record", nil)
	errLog.Log(req, "test error", nil)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/prayers/record" {
		t.Errorf("path = %v, want %q", fields["path"], "/api/prayers/record")
	}
	if fields["method"] != http.MethodPost {
		t.Errorf("method = %v, want %q", fields["method"], http.MethodPost)
	}
}

func TestErrorLogger_LogWithFields(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	errLog := NewErrorLogger(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	errLog.LogWithFields(req, "test error", nil, zap.String("extra", "field"))

	if got := logs.FilterField(zap.String("extra", "field")).Len(); got != 1 {
		t.Errorf("entries with extra field = %d, want 1", got)
	}
}

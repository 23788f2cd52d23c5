package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestMember represents a signed-in member for handler tests.
type TestMember struct {
	ID       string
	Name     string
	Role     string
	Identity string
}

// AdminMember returns a TestMember with the admin role.
func AdminMember() TestMember {
	id := primitive.NewObjectID().Hex()
	return TestMember{ID: id, Name: "Test Admin", Role: "admin", Identity: "sub-" + id}
}

// RegularMember returns a TestMember with the member role.
func RegularMember() TestMember {
	id := primitive.NewObjectID().Hex()
	return TestMember{ID: id, Name: "Test Member", Role: "member", Identity: "sub-" + id}
}

// WithMember injects m into the request context, bypassing the session.
func WithMember(r *http.Request, m TestMember) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:       m.ID,
		Name:     m.Name,
		Role:     m.Role,
		Identity: m.Identity,
	})
}

// NewJSONRequest creates a request whose body is body encoded as JSON.
// A nil body sends no payload.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a JSON request with m signed in.
func NewAuthenticatedRequest(t *testing.T, method, target string, body any, m TestMember) *http.Request {
	t.Helper()
	return WithMember(NewJSONRequest(t, method, target, body), m)
}

// DecodeJSON decodes a recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// ErrorCode returns the "error" field of a JSON error response.
func ErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	DecodeJSON(t, rec, &body)
	return body.Error
}

// ServeAs sends a JSON request through handler with m signed in.
func ServeAs(t *testing.T, handler http.Handler, method, target string, body any, m TestMember) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, NewAuthenticatedRequest(t, method, target, body, m))
	return rec
}

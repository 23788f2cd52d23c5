package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func withTestMember(id, name, role string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	return auth.WithTestUser(req, &auth.SessionUser{
		ID:       id,
		Name:     name,
		Role:     role,
		Identity: "sub-" + id,
	})
}

func TestMemberCtx(t *testing.T) {
	validID := primitive.NewObjectID()

	tests := []struct {
		name     string
		req      *http.Request
		wantRole string
		wantName string
		wantOK   bool
	}{
		{"admin", withTestMember(validID.Hex(), "Admin", "admin"), "admin", "Admin", true},
		{"member", withTestMember(validID.Hex(), "Karim", "member"), "member", "Karim", true},
		{"role normalized", withTestMember(validID.Hex(), "Karim", " ADMIN"), "admin", "Karim", true},
		{"malformed id", withTestMember("nope", "Karim", "admin"), "visitor", "", false},
		{"anonymous", httptest.NewRequest("GET", "/", nil), "visitor", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, name, id, ok := MemberCtx(tt.req)
			if role != tt.wantRole || name != tt.wantName || ok != tt.wantOK {
				t.Errorf("MemberCtx() = %q, %q, %v; want %q, %q, %v", role, name, ok, tt.wantRole, tt.wantName, tt.wantOK)
			}
			if ok && id != validID {
				t.Errorf("MemberCtx() id = %v, want %v", id, validID)
			}
			if !ok && !id.IsZero() {
				t.Error("MemberCtx() id should be zero when not ok")
			}
		})
	}
}

func TestRoleHelpers(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	admin := withTestMember(id, "A", "admin")
	member := withTestMember(id, "M", "member")
	anon := httptest.NewRequest("GET", "/", nil)

	if !IsAdmin(admin) || IsAdmin(member) || IsAdmin(anon) {
		t.Error("IsAdmin() wrong")
	}
	if !IsLoggedIn(member) || IsLoggedIn(anon) {
		t.Error("IsLoggedIn() wrong")
	}
	if !HasRole(member, "admin", "Member") || HasRole(member, "admin") || HasRole(anon, "member") {
		t.Error("HasRole() wrong")
	}
	if Identity(member) != "sub-"+id || Identity(anon) != "" {
		t.Errorf("Identity() = %q", Identity(member))
	}
}

func TestCanViewMember(t *testing.T) {
	self := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name   string
		req    *http.Request
		target primitive.ObjectID
		want   bool
	}{
		{"self", withTestMember(self.Hex(), "S", "member"), self, true},
		{"other member", withTestMember(self.Hex(), "S", "member"), other, false},
		{"admin other", withTestMember(self.Hex(), "S", "admin"), other, true},
		{"anonymous", httptest.NewRequest("GET", "/", nil), other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewMember(tt.req, tt.target); got != tt.want {
				t.Errorf("CanViewMember() = %v, want %v", got, tt.want)
			}
		})
	}
}

// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/normalize"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberCtx returns the signed-in member's role (lowercased), name, ObjectID,
// and a found flag. A missing member or a malformed ID yields
// "visitor", "", NilObjectID, false, so ok=true always carries a usable ID.
func MemberCtx(r *http.Request) (role string, name string, memberID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	memberID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		// Malformed ID in session; fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return normalize.Role(u.Role), u.Name, memberID, true
}

// Identity returns the sign-in identity of the current member, or "".
func Identity(r *http.Request) string {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return ""
	}
	return u.Identity
}

// IsAdmin reports whether the current member is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := MemberCtx(r)
	return ok && role == models.RoleAdmin
}

// IsLoggedIn reports whether there is a member in the request context.
func IsLoggedIn(r *http.Request) bool {
	_, _, _, ok := MemberCtx(r)
	return ok
}

// HasRole reports whether the current member has one of the given roles.
func HasRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := MemberCtx(r)
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if normalize.Role(allowed) == role {
			return true
		}
	}
	return false
}

// CanViewMember reports whether the current member may read target's
// private data (history, profile): themselves, or any admin.
func CanViewMember(r *http.Request, target primitive.ObjectID) bool {
	role, _, id, ok := MemberCtx(r)
	if !ok {
		return false
	}
	return id == target || role == models.RoleAdmin
}

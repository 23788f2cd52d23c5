// internal/domain/models/member.go
package models

// Terminology: Member Identifiers
//   - MemberID / memberID / member_id: The MongoDB ObjectID (_id) of a member record
//   - IdentityID / identity: The identity provider's subject id linked to the member on login

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member is a roster entry of the community.
//
// Members are never deleted while attendance history references them;
// Status "disabled" is the soft-deactivation state.
type Member struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped

	Email      *string `bson:"email" json:"email,omitempty"`             // lowercase
	IdentityID *string `bson:"identity_id" json:"identity_id,omitempty"` // overwritten on every login

	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`

	Role   string `bson:"role" json:"role"`     // admin, member
	Status string `bson:"status" json:"status"` // active, disabled

	JoinedAt    time.Time  `bson:"joined_at" json:"joined_at"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Member roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member status values
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// IsAdmin reports whether the member holds the admin role.
func (m Member) IsAdmin() bool { return m.Role == RoleAdmin }

// IsActive reports whether the member is eligible for tracking.
func (m Member) IsActive() bool { return m.Status == StatusActive }

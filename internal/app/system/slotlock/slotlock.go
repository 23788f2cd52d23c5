// Package slotlock decides who may write a prayer slot and whether the
// write locks it.
//
// A member locks their own slot the moment they write it. Anyone else may
// mark an unlocked slot on the member's behalf, which leaves it unlocked for
// the owner to confirm. Once locked, only the owner can change the slot.
// Admins follow the same rule.
package slotlock

import "github.com/tanvirrrhasan/namajtracker/internal/domain/models"

// DenyReason explains a denied write.
type DenyReason string

const (
	ReasonActorUnresolved DenyReason = "actor_has_no_member_record"
	ReasonSlotLocked      DenyReason = "slot_locked_by_owner"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Permit    bool
	LockAfter bool       // lock state the slot must have after a permitted write
	SelfWrite bool       // actor is the slot's owner
	Reason    DenyReason // set when Permit is false
}

// Authorize decides whether actor may write prayer on target's record.
// actor is nil when the calling identity has no member record; current is
// nil when the target has no record for the day yet.
func Authorize(actor *models.Member, target models.Member, prayer models.Prayer, current *models.AttendanceRecord) Decision {
	if actor == nil {
		return Decision{Reason: ReasonActorUnresolved}
	}
	self := actor.ID == target.ID

	if !current.Slot(prayer).Locked {
		return Decision{Permit: true, LockAfter: self, SelfWrite: self}
	}
	if self {
		return Decision{Permit: true, LockAfter: true, SelfWrite: true}
	}
	return Decision{Reason: ReasonSlotLocked}
}

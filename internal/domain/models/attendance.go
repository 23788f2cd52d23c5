// internal/domain/models/attendance.go
package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar-day key format (timezone-naive).
const DateLayout = "2006-01-02"

// ValidDate reports whether s is a real calendar day in YYYY-MM-DD form.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

// SlotState is the state of one prayer slot on one day.
//
// Touched distinguishes "explicitly set at least once" from the default.
type SlotState struct {
	Completed bool `bson:"completed" json:"completed"`
	Touched   bool `bson:"touched" json:"touched"`
	Locked    bool `bson:"locked" json:"locked"`
}

// Slots holds the five slot states of a record, indexed by Prayer.
type Slots [NumPrayers]SlotState

// CompletedCount returns how many slots are marked completed.
func (s Slots) CompletedCount() int {
	n := 0
	for _, st := range s {
		if st.Completed {
			n++
		}
	}
	return n
}

// slotsDoc is the stored and wire shape of Slots.
type slotsDoc struct {
	Fajr    SlotState `bson:"fajr" json:"fajr"`
	Dhuhr   SlotState `bson:"dhuhr" json:"dhuhr"`
	Asr     SlotState `bson:"asr" json:"asr"`
	Maghrib SlotState `bson:"maghrib" json:"maghrib"`
	Isha    SlotState `bson:"isha" json:"isha"`
}

func (s Slots) doc() slotsDoc {
	return slotsDoc{s[Fajr], s[Dhuhr], s[Asr], s[Maghrib], s[Isha]}
}

func (d slotsDoc) slots() Slots {
	return Slots{d.Fajr, d.Dhuhr, d.Asr, d.Maghrib, d.Isha}
}

// MarshalBSON implements bson.Marshaler.
func (s Slots) MarshalBSON() ([]byte, error) { return bson.Marshal(s.doc()) }

// UnmarshalBSON implements bson.Unmarshaler. Missing slots decode as defaults.
func (s *Slots) UnmarshalBSON(data []byte) error {
	var d slotsDoc
	if err := bson.Unmarshal(data, &d); err != nil {
		return err
	}
	*s = d.slots()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Slots) MarshalJSON() ([]byte, error) { return json.Marshal(s.doc()) }

// UnmarshalJSON implements json.Unmarshaler.
func (s *Slots) UnmarshalJSON(data []byte) error {
	var d slotsDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*s = d.slots()
	return nil
}

// AttendanceRecord is the single record of a member's five prayers on one day.
// At most one exists per (MemberID, Date).
type AttendanceRecord struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID           primitive.ObjectID `bson:"member_id" json:"member_id"`
	Date               string             `bson:"date" json:"date"`
	Slots              Slots              `bson:"slots" json:"slots"`
	LastWriterIdentity string             `bson:"last_writer_identity" json:"last_writer_identity"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// Slot returns the state of one slot. A nil record yields the default state.
func (r *AttendanceRecord) Slot(p Prayer) SlotState {
	if r == nil || !p.Valid() {
		return SlotState{}
	}
	return r.Slots[p]
}

// AttendanceHistoryEntry is an immutable fact about one permitted write.
type AttendanceHistoryEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WriteID       string             `bson:"write_id" json:"write_id"`
	MemberID      primitive.ObjectID `bson:"member_id" json:"member_id"`
	Date          string             `bson:"date" json:"date"`
	Prayer        Prayer             `bson:"prayer" json:"prayer"`
	Completed     bool               `bson:"completed" json:"completed"`
	LockedAfter   bool               `bson:"locked_after" json:"locked_after"`
	ActorIdentity string             `bson:"actor_identity" json:"actor_identity"`
	ActorMemberID primitive.ObjectID `bson:"actor_member_id" json:"actor_member_id"`
	SelfUpdate    bool               `bson:"self_update" json:"self_update"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

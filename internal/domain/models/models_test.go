package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParsePrayer(t *testing.T) {
	tests := []struct {
		in      string
		want    Prayer
		wantErr bool
	}{
		{"fajr", Fajr, false},
		{" Dhuhr ", Dhuhr, false},
		{"ASR", Asr, false},
		{"maghrib", Maghrib, false},
		{"isha", Isha, false},
		{"zuhr", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrayer(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrayer_InvalidDoesNotMarshal(t *testing.T) {
	bad := Prayer(NumPrayers)
	assert.False(t, bad.Valid())
	assert.Equal(t, "Prayer(5)", bad.String())

	_, err := json.Marshal(bad)
	assert.Error(t, err)
	_, _, err = bad.MarshalBSONValue()
	assert.Error(t, err)
}

func TestPrayers_Order(t *testing.T) {
	names := make([]string, 0, NumPrayers)
	for _, p := range Prayers() {
		names = append(names, p.String())
	}
	assert.Equal(t, []string{"fajr", "dhuhr", "asr", "maghrib", "isha"}, names)
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2024-02-29"))
	assert.True(t, ValidDate("2025-12-31"))
	assert.False(t, ValidDate("2025-02-29"), "not a leap year")
	assert.False(t, ValidDate("2025-1-5"), "must be zero padded")
	assert.False(t, ValidDate("2025-01-05T00:00:00Z"))
	assert.False(t, ValidDate(""))
}

func TestSlots_StoredByName(t *testing.T) {
	var s Slots
	s[Asr] = SlotState{Completed: true, Touched: true, Locked: true}

	raw, err := bson.Marshal(bson.M{"slots": s})
	require.NoError(t, err)

	var doc struct {
		Slots bson.M `bson:"slots"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	require.Len(t, doc.Slots, NumPrayers)
	asr, ok := doc.Slots["asr"].(bson.M)
	require.True(t, ok, "asr slot should be a subdocument")
	assert.Equal(t, true, asr["locked"])

	jsonRaw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(jsonRaw), `"maghrib":{"completed":false,"touched":false,"locked":false}`)
}

func TestSlots_MissingSlotsDecodeAsDefaults(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"isha": bson.M{"completed": true, "touched": true, "locked": false}})
	require.NoError(t, err)

	var s Slots
	require.NoError(t, bson.Unmarshal(raw, &s))
	assert.Equal(t, SlotState{}, s[Fajr])
	assert.True(t, s[Isha].Completed)
	assert.Equal(t, 1, s.CompletedCount())
}

func TestHistoryEntry_PrayerByName(t *testing.T) {
	e := AttendanceHistoryEntry{
		MemberID: primitive.NewObjectID(),
		Date:     "2025-03-01",
		Prayer:   Maghrib,
	}
	raw, err := bson.Marshal(e)
	require.NoError(t, err)
	assert.Equal(t, "maghrib", bson.Raw(raw).Lookup("prayer").StringValue())

	var back AttendanceHistoryEntry
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, Maghrib, back.Prayer)
}

func TestAttendanceRecord_SlotOnNil(t *testing.T) {
	var r *AttendanceRecord
	assert.Equal(t, SlotState{}, r.Slot(Fajr))

	r = &AttendanceRecord{}
	r.Slots[Dhuhr].Locked = true
	assert.True(t, r.Slot(Dhuhr).Locked)
	assert.Equal(t, SlotState{}, r.Slot(Prayer(9)))
}

func TestMemberRoles(t *testing.T) {
	assert.True(t, IsValidRole(RoleAdmin))
	assert.True(t, IsValidRole(RoleMember))
	assert.False(t, IsValidRole("developer"))

	m := Member{Role: RoleAdmin, Status: StatusDisabled}
	assert.True(t, m.IsAdmin())
	assert.False(t, m.IsActive())
}

package indexes

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestKeySig(t *testing.T) {
	got := keySig(bson.D{{Key: "member_id", Value: 1}, {Key: "date", Value: 1}})
	if got != "member_id:1, date:1" {
		t.Errorf("keySig() = %q", got)
	}
}

func TestSameBoolPtr(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		a, b *bool
		want bool
	}{
		{nil, nil, true},
		{nil, &no, true},
		{&yes, nil, false},
		{&yes, &yes, true},
	}
	for _, tt := range tests {
		if got := sameBoolPtr(tt.a, tt.b); got != tt.want {
			t.Errorf("sameBoolPtr(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDesired_UniqueAttendancePerMemberDay(t *testing.T) {
	for _, ci := range desired() {
		if ci.collection != "attendance_records" {
			continue
		}
		for _, m := range ci.models {
			if keySig(m.Keys.(bson.D)) == "member_id:1, date:1" {
				if m.Options.Unique == nil || !*m.Options.Unique {
					t.Fatal("member_id+date index must be unique")
				}
				return
			}
		}
	}
	t.Fatal("no member_id+date index on attendance_records")
}

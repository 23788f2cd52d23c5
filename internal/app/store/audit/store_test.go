package audit

import (
	"testing"
	"time"

	"github.com/tanvirrrhasan/namajtracker/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	memberID := primitive.NewObjectID()
	err := store.Log(ctx, Event{
		Category:  CategoryAuth,
		EventType: EventLoginSuccess,
		MemberID:  &memberID,
		IP:        "192.168.1.1",
		UserAgent: "TestAgent",
		Success:   true,
		Details:   map[string]string{"identity": "sub-1"},
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	events, err := store.GetByMember(ctx, memberID, 10)
	if err != nil {
		t.Fatalf("GetByMember() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("GetByMember() returned %d events, want 1", len(events))
	}
	if events[0].ID.IsZero() || events[0].CreatedAt.IsZero() {
		t.Error("Log() should fill ID and CreatedAt")
	}
	if events[0].Details["identity"] != "sub-1" {
		t.Errorf("Details[identity] = %q, want sub-1", events[0].Details["identity"])
	}
}

func TestStore_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	memberID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	events := []Event{
		{Category: CategoryAuth, EventType: EventLoginSuccess, MemberID: &memberID, Success: true},
		{Category: CategoryAuth, EventType: EventLoginFailedMemberDisabled, MemberID: &memberID, Success: false},
		{Category: CategoryAdmin, EventType: EventMemberRoleChanged, MemberID: &memberID, ActorID: &actorID, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    QueryFilter
		wantCount int
	}{
		{"all events", QueryFilter{}, 3},
		{"by member", QueryFilter{MemberID: &memberID}, 3},
		{"by actor", QueryFilter{ActorID: &actorID}, 1},
		{"by category auth", QueryFilter{Category: CategoryAuth}, 2},
		{"by event type", QueryFilter{EventType: EventMemberRoleChanged}, 1},
		{"with limit", QueryFilter{Limit: 2}, 2},
		{"with offset", QueryFilter{Limit: 10, Offset: 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("Query() returned %d events, want %d", len(got), tt.wantCount)
			}
			n, err := store.CountByFilter(ctx, QueryFilter{
				MemberID: tt.filter.MemberID, ActorID: tt.filter.ActorID,
				Category: tt.filter.Category, EventType: tt.filter.EventType,
			})
			if err != nil {
				t.Fatalf("CountByFilter() error = %v", err)
			}
			if tt.filter.Limit == 0 && int(n) != tt.wantCount {
				t.Errorf("CountByFilter() = %d, want %d", n, tt.wantCount)
			}
		})
	}
}

func TestStore_Query_TimeRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if err := store.Log(ctx, Event{Category: CategoryAuth, EventType: EventLogout, CreatedAt: now, Success: true}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	tests := []struct {
		name      string
		start     *time.Time
		end       *time.Time
		wantCount int
	}{
		{"start before", &past, nil, 1},
		{"start after", &future, nil, 0},
		{"end before", nil, &past, 0},
		{"range includes", &past, &future, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, QueryFilter{StartTime: tt.start, EndTime: tt.end})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("Query() returned %d events, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestStore_DeleteBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	for _, at := range []time.Time{old, old.Add(time.Minute), now} {
		if err := store.Log(ctx, Event{Category: CategoryAuth, EventType: EventLogout, CreatedAt: at, Success: true}); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	n, err := store.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteBefore() removed %d, want 2", n)
	}
	left, err := store.CountByFilter(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("CountByFilter() error = %v", err)
	}
	if left != 1 {
		t.Errorf("remaining events = %d, want 1", left)
	}
}

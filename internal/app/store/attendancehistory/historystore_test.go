package attendancehistory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"github.com/tanvirrrhasan/namajtracker/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func entry(member primitive.ObjectID, date string, p models.Prayer, completed bool) models.AttendanceHistoryEntry {
	return models.AttendanceHistoryEntry{
		MemberID:      member,
		Date:          date,
		Prayer:        p,
		Completed:     completed,
		ActorIdentity: "sub-actor",
		ActorMemberID: member,
		SelfUpdate:    true,
		LockedAfter:   true,
	}
}

func TestAppend_FillsGeneratedFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := primitive.NewObjectID()
	require.NoError(t, store.Append(ctx, entry(member, "2026-03-14", models.Fajr, true)))

	got, err := store.ListForRecord(ctx, member, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].ID.IsZero())
	assert.NotEmpty(t, got[0].WriteID)
	assert.False(t, got[0].CreatedAt.IsZero())
	assert.Equal(t, models.Fajr, got[0].Prayer)
	assert.True(t, got[0].SelfUpdate)
	assert.True(t, got[0].LockedAfter)
	assert.Equal(t, "sub-actor", got[0].ActorIdentity)
}

func TestListForRecord_OldestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := primitive.NewObjectID()
	other := primitive.NewObjectID()
	require.NoError(t, store.Append(ctx, entry(member, "2026-03-14", models.Fajr, true)))
	require.NoError(t, store.Append(ctx, entry(member, "2026-03-14", models.Fajr, false)))
	require.NoError(t, store.Append(ctx, entry(member, "2026-03-14", models.Asr, true)))
	require.NoError(t, store.Append(ctx, entry(member, "2026-03-15", models.Fajr, true)))
	require.NoError(t, store.Append(ctx, entry(other, "2026-03-14", models.Fajr, true)))

	got, err := store.ListForRecord(ctx, member, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Completed)
	assert.False(t, got[1].Completed)
	assert.Equal(t, models.Asr, got[2].Prayer)

	n, err := store.CountForRecord(ctx, member, "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	none, err := store.ListForRecord(ctx, member, "2026-01-01")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListForMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	member := primitive.NewObjectID()
	for _, d := range []string{"2026-03-10", "2026-03-11", "2026-03-12", "2026-03-13"} {
		require.NoError(t, store.Append(ctx, entry(member, d, models.Isha, true)))
	}
	require.NoError(t, store.Append(ctx, entry(primitive.NewObjectID(), "2026-03-11", models.Isha, true)))

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"2026-03-13", "2026-03-12", "2026-03-11", "2026-03-10"}},
		{"date range", QueryFilter{FromDate: "2026-03-11", ToDate: "2026-03-12"}, []string{"2026-03-12", "2026-03-11"}},
		{"from only", QueryFilter{FromDate: "2026-03-13"}, []string{"2026-03-13"}},
		{"limit and offset", QueryFilter{Limit: 2, Offset: 1}, []string{"2026-03-12", "2026-03-11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListForMember(ctx, member, tt.filter)
			require.NoError(t, err)
			dates := make([]string, len(got))
			for i, e := range got {
				dates[i] = e.Date
			}
			assert.Equal(t, tt.want, dates)
		})
	}
}

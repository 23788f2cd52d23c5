package tracker

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/attendancehistory"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/slotlock"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DailyRow is one active member's attendance on one day.
type DailyRow struct {
	MemberID       primitive.ObjectID `json:"member_id"`
	MemberName     string             `json:"member_name"`
	Slots          models.Slots       `json:"slots"`
	CompletedCount int                `json:"completed_count"`
	Recorded       bool               `json:"recorded"` // a record exists for the day

	// CanWrite is set only for viewer-specific views and tells the viewer
	// which slots they may change.
	CanWrite map[string]bool `json:"can_write,omitempty"`
}

// DailyAttendance returns a row for every active member, ordered by
// display name (case-insensitive) and then member id. Members without a
// record for date get default slots.
func (s *Service) DailyAttendance(ctx context.Context, date string) ([]DailyRow, error) {
	rows, _, err := s.daily(ctx, date)
	return rows, err
}

// DailyAttendanceFor is DailyAttendance with per-slot write permissions for
// the viewer, decided by the same policy that guards writes.
func (s *Service) DailyAttendanceFor(ctx context.Context, viewerIdentity, date string) ([]DailyRow, error) {
	rows, members, err := s.daily(ctx, date)
	if err != nil {
		return nil, err
	}

	viewer, err := s.members.ResolveByIdentity(ctx, viewerIdentity)
	if err != nil {
		return nil, s.fail("resolve viewer", err)
	}
	if viewer != nil && !viewer.IsActive() {
		viewer = nil
	}

	for i := range rows {
		rec := &models.AttendanceRecord{Slots: rows[i].Slots}
		rows[i].CanWrite = make(map[string]bool, models.NumPrayers)
		for _, p := range models.Prayers() {
			rows[i].CanWrite[p.String()] = slotlock.Authorize(viewer, members[i], p, rec).Permit
		}
	}
	return rows, nil
}

func (s *Service) daily(ctx context.Context, date string) ([]DailyRow, []models.Member, error) {
	if !models.ValidDate(date) {
		return nil, nil, ErrInvalidDate
	}

	members, err := s.members.ListActive(ctx)
	if err != nil {
		return nil, nil, s.fail("list members", err)
	}
	sortRoster(members)
	recs, err := s.records.ListByDate(ctx, date)
	if err != nil {
		return nil, nil, s.fail("list records", err)
	}

	byMember := make(map[primitive.ObjectID]models.AttendanceRecord, len(recs))
	for _, r := range recs {
		byMember[r.MemberID] = r
	}

	rows := make([]DailyRow, 0, len(members))
	for _, m := range members {
		row := DailyRow{MemberID: m.ID, MemberName: m.FullName}
		if r, ok := byMember[m.ID]; ok {
			row.Slots = r.Slots
			row.Recorded = true
		}
		row.CompletedCount = row.Slots.CompletedCount()
		rows = append(rows, row)
	}
	return rows, members, nil
}

// sortRoster orders members by folded name, ties by id.
func sortRoster(members []models.Member) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := text.Fold(members[i].FullName), text.Fold(members[j].FullName)
		if a != b {
			return a < b
		}
		return bytes.Compare(members[i].ID[:], members[j].ID[:]) < 0
	})
}

// History returns every permitted write to one record, oldest first.
func (s *Service) History(ctx context.Context, memberID primitive.ObjectID, date string) ([]models.AttendanceHistoryEntry, error) {
	if !models.ValidDate(date) {
		return nil, ErrInvalidDate
	}
	entries, err := s.history.ListForRecord(ctx, memberID, date)
	if err != nil {
		return nil, s.fail("list history", err)
	}
	return entries, nil
}

// MemberHistory returns a member's writes across days, newest first.
// from and to are optional inclusive bounds.
func (s *Service) MemberHistory(ctx context.Context, memberID primitive.ObjectID, from, to string, limit, offset int64) ([]models.AttendanceHistoryEntry, error) {
	for _, d := range []string{from, to} {
		if d != "" && !models.ValidDate(d) {
			return nil, ErrInvalidDate
		}
	}
	entries, err := s.history.ListForMember(ctx, memberID, attendancehistory.QueryFilter{
		FromDate: from,
		ToDate:   to,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, s.fail("list member history", err)
	}
	return entries, nil
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(models.DateLayout)
}

package tracker

import (
	"context"
	"sync"
	"time"

	attendancestore "github.com/tanvirrrhasan/namajtracker/internal/app/store/attendance"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/attendancehistory"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeDirectory struct {
	mu      sync.Mutex
	members map[primitive.ObjectID]models.Member
	err     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{members: map[primitive.ObjectID]models.Member{}}
}

func (d *fakeDirectory) add(name, identity string) models.Member {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := models.Member{
		ID:       primitive.NewObjectID(),
		FullName: name,
		Role:     models.RoleMember,
		Status:   models.StatusActive,
	}
	if identity != "" {
		m.IdentityID = &identity
	}
	d.members[m.ID] = m
	return m
}

func (d *fakeDirectory) update(m models.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.ID] = m
}

func (d *fakeDirectory) ResolveByIdentity(_ context.Context, identity string) (*models.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, m := range d.members {
		if m.IdentityID != nil && *m.IdentityID == identity {
			return &m, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id primitive.ObjectID) (*models.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	m, ok := d.members[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &m, nil
}

func (d *fakeDirectory) ListActive(_ context.Context) ([]models.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	var out []models.Member
	for _, m := range d.members {
		if m.IsActive() {
			out = append(out, m)
		}
	}
	return out, nil
}

type recordKey struct {
	member primitive.ObjectID
	date   string
}

// fakeRecords mimics the Mongo store: one record per key, partial-slot
// updates, and a conflict when a guarded write meets a locked slot.
type fakeRecords struct {
	mu        sync.Mutex
	recs      map[recordKey]*models.AttendanceRecord
	getErr    error
	upsertErr error
	upserts   int

	// beforeUpsert runs before the first upsert only, outside the lock.
	beforeUpsert func()
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{recs: map[recordKey]*models.AttendanceRecord{}}
}

func (f *fakeRecords) Get(_ context.Context, memberID primitive.ObjectID, date string) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.recs[recordKey{memberID, date}]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecords) ListByDate(_ context.Context, date string) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceRecord
	for k, r := range f.recs {
		if k.date == date {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRecords) UpsertSlot(_ context.Context, w attendancestore.SlotWrite) (*models.AttendanceRecord, error) {
	if hook := f.takeHook(); hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}

	k := recordKey{w.MemberID, w.Date}
	r, ok := f.recs[k]
	if ok && w.RequireUnlocked && r.Slots[w.Prayer].Locked {
		return nil, attendancestore.ErrWriteConflict
	}
	now := time.Now().UTC()
	if !ok {
		r = &models.AttendanceRecord{ID: primitive.NewObjectID(), MemberID: w.MemberID, Date: w.Date, CreatedAt: now}
		f.recs[k] = r
	}
	r.Slots[w.Prayer] = models.SlotState{Completed: w.Completed, Touched: true, Locked: w.Lock}
	r.LastWriterIdentity = w.WriterIdentity
	r.UpdatedAt = now
	cp := *r
	return &cp, nil
}

func (f *fakeRecords) takeHook() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.beforeUpsert
	f.beforeUpsert = nil
	return h
}

func (f *fakeRecords) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type fakeHistory struct {
	mu        sync.Mutex
	entries   []models.AttendanceHistoryEntry
	appendErr error
}

func (h *fakeHistory) Append(_ context.Context, e models.AttendanceHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	h.entries = append(h.entries, e)
	return nil
}

func (h *fakeHistory) ListForRecord(_ context.Context, memberID primitive.ObjectID, date string) ([]models.AttendanceHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.AttendanceHistoryEntry
	for _, e := range h.entries {
		if e.MemberID == memberID && e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (h *fakeHistory) ListForMember(_ context.Context, memberID primitive.ObjectID, f attendancehistory.QueryFilter) ([]models.AttendanceHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.AttendanceHistoryEntry
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if e.MemberID != memberID {
			continue
		}
		if (f.FromDate != "" && e.Date < f.FromDate) || (f.ToDate != "" && e.Date > f.ToDate) {
			continue
		}
		out = append(out, e)
	}
	if f.Offset > 0 {
		if f.Offset >= int64(len(out)) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (h *fakeHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

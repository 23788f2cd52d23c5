package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	attendancestore "github.com/tanvirrrhasan/namajtracker/internal/app/store/attendance"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/metrics"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const day = "2026-03-14"

type fixture struct {
	svc     *Service
	dir     *fakeDirectory
	records *fakeRecords
	history *fakeHistory

	owner models.Member
	other models.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir:     newFakeDirectory(),
		records: newFakeRecords(),
		history: &fakeHistory{},
	}
	f.owner = f.dir.add("Owner", "id-owner")
	f.other = f.dir.add("Other", "id-other")
	f.svc = New(f.dir, f.records, f.history, nil, nil, zap.NewNop())
	return f
}

func (f *fixture) record(t *testing.T, identity string, p models.Prayer, completed bool) (*models.AttendanceRecord, error) {
	t.Helper()
	return f.svc.RecordPrayer(context.Background(), identity, f.owner.ID, day, p, completed)
}

func (f *fixture) stored(t *testing.T) *models.AttendanceRecord {
	t.Helper()
	rec, err := f.records.Get(context.Background(), f.owner.ID, day)
	require.NoError(t, err)
	return rec
}

func TestRecordPrayer_FirstTouchSelfLocks(t *testing.T) {
	f := newFixture(t)

	rec, err := f.record(t, "id-owner", models.Fajr, true)
	require.NoError(t, err)

	assert.Equal(t, models.SlotState{Completed: true, Touched: true, Locked: true}, rec.Slot(models.Fajr))
	assert.Equal(t, "id-owner", rec.LastWriterIdentity)
}

func TestRecordPrayer_ThirdPartyDoesNotLock(t *testing.T) {
	f := newFixture(t)

	rec, err := f.record(t, "id-other", models.Fajr, true)
	require.NoError(t, err)

	assert.Equal(t, models.SlotState{Completed: true, Touched: true, Locked: false}, rec.Slot(models.Fajr))
	assert.Equal(t, "id-other", rec.LastWriterIdentity)
}

func TestRecordPrayer_OwnerOverridesThirdParty(t *testing.T) {
	f := newFixture(t)

	_, err := f.record(t, "id-other", models.Fajr, true)
	require.NoError(t, err)

	rec, err := f.record(t, "id-owner", models.Fajr, false)
	require.NoError(t, err)
	assert.Equal(t, models.SlotState{Completed: false, Touched: true, Locked: true}, rec.Slot(models.Fajr))
}

func TestRecordPrayer_LockBlocksThirdParty(t *testing.T) {
	f := newFixture(t)

	_, err := f.record(t, "id-owner", models.Fajr, false)
	require.NoError(t, err)
	before := f.stored(t)
	entries := f.history.len()

	rec, err := f.record(t, "id-other", models.Fajr, true)
	assert.ErrorIs(t, err, ErrSlotLocked)
	assert.Nil(t, rec)

	assert.Equal(t, before.Slots, f.stored(t).Slots)
	assert.Equal(t, entries, f.history.len(), "denied writes must not be journaled")
}

func TestRecordPrayer_AdminDoesNotBypassLock(t *testing.T) {
	f := newFixture(t)
	admin := f.dir.add("Imam", "id-admin")
	admin.Role = models.RoleAdmin
	f.dir.update(admin)

	_, err := f.record(t, "id-owner", models.Isha, true)
	require.NoError(t, err)

	_, err = f.record(t, "id-admin", models.Isha, false)
	assert.ErrorIs(t, err, ErrSlotLocked)
	assert.True(t, f.stored(t).Slot(models.Isha).Completed)
}

func TestRecordPrayer_OwnerCanAlwaysRevise(t *testing.T) {
	f := newFixture(t)

	for i, completed := range []bool{true, false, true, false, false, true} {
		rec, err := f.record(t, "id-owner", models.Asr, completed)
		require.NoError(t, err, "write %d", i)
		assert.Equal(t, completed, rec.Slot(models.Asr).Completed, "write %d", i)
		assert.True(t, rec.Slot(models.Asr).Locked, "write %d", i)
	}
	assert.True(t, f.stored(t).Slot(models.Asr).Completed)
}

func TestRecordPrayer_PartialFieldIsolation(t *testing.T) {
	f := newFixture(t)

	_, err := f.record(t, "id-other", models.Dhuhr, true)
	require.NoError(t, err)
	_, err = f.record(t, "id-owner", models.Maghrib, true)
	require.NoError(t, err)
	before := f.stored(t)

	_, err = f.record(t, "id-owner", models.Fajr, true)
	require.NoError(t, err)
	after := f.stored(t)

	for _, p := range models.Prayers() {
		if p == models.Fajr {
			continue
		}
		assert.Equal(t, before.Slot(p), after.Slot(p), "slot %s changed", p)
	}
}

func TestRecordPrayer_HistoryIsAppendOnly(t *testing.T) {
	f := newFixture(t)
	values := []bool{true, true, false, true, false}

	for _, v := range values {
		_, err := f.record(t, "id-owner", models.Maghrib, v)
		require.NoError(t, err)
	}

	entries, err := f.svc.History(context.Background(), f.owner.ID, day)
	require.NoError(t, err)
	require.Len(t, entries, len(values))
	for i, e := range entries {
		assert.Equal(t, values[i], e.Completed, "entry %d", i)
		assert.Equal(t, models.Maghrib, e.Prayer)
		assert.True(t, e.SelfUpdate)
		assert.Equal(t, f.owner.ID, e.ActorMemberID)
	}
	assert.Equal(t, values[len(values)-1], f.stored(t).Slot(models.Maghrib).Completed)
}

func TestRecordPrayer_HistoryRecordsThirdParty(t *testing.T) {
	f := newFixture(t)

	_, err := f.record(t, "id-other", models.Fajr, true)
	require.NoError(t, err)

	require.Equal(t, 1, f.history.len())
	e := f.history.entries[0]
	assert.False(t, e.SelfUpdate)
	assert.False(t, e.LockedAfter)
	assert.Equal(t, "id-other", e.ActorIdentity)
	assert.Equal(t, f.other.ID, e.ActorMemberID)
	assert.Equal(t, f.owner.ID, e.MemberID)
}

func TestRecordPrayer_ConcurrentFirstWrites(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, models.NumPrayers)
	for _, p := range models.Prayers() {
		wg.Add(1)
		go func(p models.Prayer) {
			defer wg.Done()
			_, err := f.record(t, "id-owner", p, true)
			errs <- err
		}(p)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.records.count())
	assert.Equal(t, models.NumPrayers, f.stored(t).Slots.CompletedCount())
}

func TestRecordPrayer_UnknownActorRejected(t *testing.T) {
	f := newFixture(t)

	rec, err := f.record(t, "id-nobody", models.Fajr, true)
	assert.ErrorIs(t, err, ErrActorUnresolved)
	assert.Nil(t, rec)
	assert.Equal(t, 0, f.records.count())
	assert.Equal(t, 0, f.history.len())
}

func TestRecordPrayer_InactiveActorRejected(t *testing.T) {
	f := newFixture(t)
	f.other.Status = models.StatusDisabled
	f.dir.update(f.other)

	_, err := f.record(t, "id-other", models.Fajr, true)
	assert.ErrorIs(t, err, ErrActorUnresolved)
}

func TestRecordPrayer_TargetNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordPrayer(context.Background(), "id-owner", primitive.NewObjectID(), day, models.Fajr, true)
	assert.ErrorIs(t, err, ErrTargetNotFound)

	f.owner.Status = models.StatusDisabled
	f.dir.update(f.owner)
	_, err = f.record(t, "id-other", models.Fajr, true)
	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.Equal(t, 0, f.records.count())
}

func TestRecordPrayer_InvalidInput(t *testing.T) {
	f := newFixture(t)

	for _, date := range []string{"", "2026-3-14", "14-03-2026", "2026-02-30", "today"} {
		_, err := f.svc.RecordPrayer(context.Background(), "id-owner", f.owner.ID, date, models.Fajr, true)
		assert.ErrorIs(t, err, ErrInvalidDate, "date %q", date)
	}

	_, err := f.svc.RecordPrayer(context.Background(), "id-owner", f.owner.ID, day, models.Prayer(9), true)
	assert.ErrorIs(t, err, ErrInvalidPrayer)
}

func TestRecordPrayer_StorageUnavailable(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("read fails", func(t *testing.T) {
		f := newFixture(t)
		f.records.getErr = boom

		_, err := f.record(t, "id-owner", models.Fajr, true)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, boom)

		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "load record", se.Op)
	})

	t.Run("upsert fails leaves no history", func(t *testing.T) {
		f := newFixture(t)
		f.records.upsertErr = boom

		_, err := f.record(t, "id-owner", models.Fajr, true)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.Equal(t, 0, f.history.len())
	})

	t.Run("history append fails after the slot write", func(t *testing.T) {
		// Without a transaction the upsert is not rolled back: the slot
		// keeps the write while its history entry is missing.
		f := newFixture(t)
		f.history.appendErr = boom

		rec, err := f.record(t, "id-owner", models.Fajr, true)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, boom)

		var se *StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "record slot", se.Op)

		assert.Equal(t, 1, f.records.count())
		assert.Equal(t, models.SlotState{Completed: true, Touched: true, Locked: true}, f.stored(t).Slot(models.Fajr))
		assert.Equal(t, 0, f.history.len())
	})

	t.Run("directory fails", func(t *testing.T) {
		f := newFixture(t)
		f.dir.err = boom

		_, err := f.record(t, "id-owner", models.Fajr, true)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})
}

func TestRecordPrayer_OwnerLocksBetweenReadAndWrite(t *testing.T) {
	f := newFixture(t)

	// The third party reads an empty slot; the owner writes before the third
	// party's upsert lands.
	f.records.beforeUpsert = func() {
		_, err := f.records.UpsertSlot(context.Background(), attendancestore.SlotWrite{
			MemberID: f.owner.ID, Date: day, Prayer: models.Fajr,
			Completed: false, Lock: true, WriterIdentity: "id-owner",
		})
		require.NoError(t, err)
	}

	_, err := f.record(t, "id-other", models.Fajr, true)
	assert.ErrorIs(t, err, ErrSlotLocked)

	slot := f.stored(t).Slot(models.Fajr)
	assert.False(t, slot.Completed)
	assert.True(t, slot.Locked)
	assert.Equal(t, 0, f.history.len())
}

func TestRecordPrayer_ConflictRetriesAreBounded(t *testing.T) {
	f := newFixture(t)
	f.records.upsertErr = attendancestore.ErrWriteConflict

	_, err := f.record(t, "id-owner", models.Fajr, true)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, attendancestore.ErrWriteConflict)
	assert.Equal(t, maxWriteAttempts, f.records.upserts)
}

func TestRecordPrayer_RetryIsCountedNotTimed(t *testing.T) {
	f := newFixture(t)
	collector := metrics.New()
	f.svc = New(f.dir, f.records, f.history, nil, collector, zap.NewNop())

	f.records.beforeUpsert = func() {
		_, err := f.records.UpsertSlot(context.Background(), attendancestore.SlotWrite{
			MemberID: f.owner.ID, Date: day, Prayer: models.Fajr,
			Completed: true, Lock: true, WriterIdentity: "id-owner",
		})
		require.NoError(t, err)
	}

	_, err := f.record(t, "id-other", models.Fajr, true)
	require.ErrorIs(t, err, ErrSlotLocked)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `namajtracker_prayer_writes_total{outcome="conflict_retried",prayer="fajr"} 1`)
	assert.Contains(t, body, `namajtracker_prayer_writes_total{outcome="denied_locked",prayer="fajr"} 1`)
	assert.Contains(t, body, `namajtracker_prayer_write_duration_seconds_count{prayer="fajr"} 1`)
}

type recordingTx struct{ calls int }

func (r *recordingTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func TestRecordPrayer_UsesTransactor(t *testing.T) {
	f := newFixture(t)
	tx := &recordingTx{}
	f.svc = New(f.dir, f.records, f.history, tx, nil, zap.NewNop())

	_, err := f.record(t, "id-owner", models.Fajr, true)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)

	_, err = f.record(t, "id-other", models.Fajr, true)
	require.ErrorIs(t, err, ErrSlotLocked)
	assert.Equal(t, 1, tx.calls, "denied writes never open a transaction")
}

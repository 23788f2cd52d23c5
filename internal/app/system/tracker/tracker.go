// Package tracker records prayer attendance. It is the only path by which
// attendance records change: every write is resolved against the member
// directory, authorized by slotlock, applied to the record store and
// journaled in the history log.
package tracker

import (
	"context"
	"errors"
	"time"

	attendancestore "github.com/tanvirrrhasan/namajtracker/internal/app/store/attendance"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/attendancehistory"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/metrics"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/slotlock"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// maxWriteAttempts bounds re-reads after a write conflict.
const maxWriteAttempts = 3

// MemberDirectory resolves identities and supplies the roster.
type MemberDirectory interface {
	// ResolveByIdentity returns nil, nil when no member is linked to identity.
	ResolveByIdentity(ctx context.Context, identity string) (*models.Member, error)
	// GetByID returns mongo.ErrNoDocuments when the member does not exist.
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	// ListActive returns active members ordered by folded name, then id.
	ListActive(ctx context.Context) ([]models.Member, error)
}

// RecordStore persists attendance records.
type RecordStore interface {
	// Get returns mongo.ErrNoDocuments when no record exists.
	Get(ctx context.Context, memberID primitive.ObjectID, date string) (*models.AttendanceRecord, error)
	ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	// UpsertSlot returns attendancestore.ErrWriteConflict on a create race
	// or a guarded write that found the slot locked.
	UpsertSlot(ctx context.Context, w attendancestore.SlotWrite) (*models.AttendanceRecord, error)
}

// HistoryLog is the append-only journal of permitted writes.
type HistoryLog interface {
	Append(ctx context.Context, e models.AttendanceHistoryEntry) error
	ListForRecord(ctx context.Context, memberID primitive.ObjectID, date string) ([]models.AttendanceHistoryEntry, error)
	// ListForMember returns entries newest first.
	ListForMember(ctx context.Context, memberID primitive.ObjectID, filter attendancehistory.QueryFilter) ([]models.AttendanceHistoryEntry, error)
}

// Transactor runs fn atomically where the backend allows it.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

type direct struct{}

func (direct) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Service implements the attendance use cases.
type Service struct {
	members MemberDirectory
	records RecordStore
	history HistoryLog
	tx      Transactor
	metrics *metrics.Collector
	logger  *zap.Logger
}

// New creates a Service. tx and m may be nil.
func New(members MemberDirectory, records RecordStore, history HistoryLog, tx Transactor, m *metrics.Collector, logger *zap.Logger) *Service {
	if tx == nil {
		tx = direct{}
	}
	return &Service{
		members: members,
		records: records,
		history: history,
		tx:      tx,
		metrics: m,
		logger:  logger,
	}
}

// RecordPrayer sets one prayer slot of targetID's record for date on behalf
// of actorIdentity and returns the updated record.
//
// Errors: ErrInvalidDate, ErrInvalidPrayer, ErrTargetNotFound,
// ErrActorUnresolved, ErrSlotLocked, or a *StorageError. A denied or failed
// write leaves the record and the history untouched.
func (s *Service) RecordPrayer(ctx context.Context, actorIdentity string, targetID primitive.ObjectID, date string, prayer models.Prayer, completed bool) (*models.AttendanceRecord, error) {
	start := time.Now()
	rec, outcome, err := s.recordPrayer(ctx, actorIdentity, targetID, date, prayer, completed)
	if outcome != "" {
		s.metrics.ObserveWrite(prayer, outcome, time.Since(start))
	}
	return rec, err
}

func (s *Service) recordPrayer(ctx context.Context, actorIdentity string, targetID primitive.ObjectID, date string, prayer models.Prayer, completed bool) (*models.AttendanceRecord, string, error) {
	if !models.ValidDate(date) {
		return nil, "", ErrInvalidDate
	}
	if !prayer.Valid() {
		return nil, "", ErrInvalidPrayer
	}

	target, err := s.members.GetByID(ctx, targetID)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !target.IsActive()) {
		return nil, metrics.OutcomeTargetNotFound, ErrTargetNotFound
	}
	if err != nil {
		return nil, metrics.OutcomeStorageError, s.fail("resolve target", err)
	}

	actor, err := s.members.ResolveByIdentity(ctx, actorIdentity)
	if err != nil {
		return nil, metrics.OutcomeStorageError, s.fail("resolve actor", err)
	}
	if actor != nil && !actor.IsActive() {
		actor = nil
	}

	for attempt := 1; ; attempt++ {
		current, err := s.records.Get(ctx, targetID, date)
		if errors.Is(err, mongo.ErrNoDocuments) {
			current, err = nil, nil
		}
		if err != nil {
			return nil, metrics.OutcomeStorageError, s.fail("load record", err)
		}

		d := slotlock.Authorize(actor, *target, prayer, current)
		if !d.Permit {
			s.logger.Info("prayer write denied",
				zap.String("reason", string(d.Reason)),
				zap.String("member_id", targetID.Hex()),
				zap.String("date", date),
				zap.String("prayer", prayer.String()))
			if d.Reason == slotlock.ReasonActorUnresolved {
				return nil, metrics.OutcomeDeniedNoMember, ErrActorUnresolved
			}
			return nil, metrics.OutcomeDeniedLocked, ErrSlotLocked
		}

		rec, err := s.apply(ctx, actor, target.ID, date, prayer, completed, d)
		if errors.Is(err, attendancestore.ErrWriteConflict) && attempt < maxWriteAttempts {
			s.metrics.CountRetry(prayer)
			s.logger.Debug("attendance write conflict, retrying",
				zap.String("member_id", targetID.Hex()),
				zap.String("date", date),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, metrics.OutcomeStorageError, s.fail("record slot", err)
		}

		outcome := metrics.OutcomeUnlocked
		if d.LockAfter {
			outcome = metrics.OutcomeLocked
		}
		s.logger.Debug("prayer recorded",
			zap.String("member_id", targetID.Hex()),
			zap.String("actor_member_id", actor.ID.Hex()),
			zap.String("date", date),
			zap.String("prayer", prayer.String()),
			zap.Bool("completed", completed),
			zap.Bool("locked", d.LockAfter))
		return rec, outcome, nil
	}
}

// apply performs the upsert and the history append as one unit.
// Third-party writes are guarded so they cannot land on a slot the owner
// locked after it was read.
func (s *Service) apply(ctx context.Context, actor *models.Member, targetID primitive.ObjectID, date string, prayer models.Prayer, completed bool, d slotlock.Decision) (*models.AttendanceRecord, error) {
	identity := ""
	if actor.IdentityID != nil {
		identity = *actor.IdentityID
	}

	var out *models.AttendanceRecord
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		rec, err := s.records.UpsertSlot(ctx, attendancestore.SlotWrite{
			MemberID:        targetID,
			Date:            date,
			Prayer:          prayer,
			Completed:       completed,
			Lock:            d.LockAfter,
			WriterIdentity:  identity,
			RequireUnlocked: !d.SelfWrite,
		})
		if err != nil {
			return err
		}
		if err := s.history.Append(ctx, models.AttendanceHistoryEntry{
			MemberID:      targetID,
			Date:          date,
			Prayer:        prayer,
			Completed:     completed,
			LockedAfter:   d.LockAfter,
			ActorIdentity: identity,
			ActorMemberID: actor.ID,
			SelfUpdate:    d.SelfWrite,
		}); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

func (s *Service) fail(op string, err error) error {
	s.logger.Error("attendance storage failure", zap.String("op", op), zap.Error(err))
	return storageErr(op, err)
}

// internal/app/store/attendance/attendancestore.go
package attendancestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the attendance records collection.
const Collection = "attendance_records"

// ErrWriteConflict is returned when an upsert collides with the unique
// (member_id, date) index: either a concurrent first write created the
// record, or a guarded write found the slot locked. Re-read and retry.
var ErrWriteConflict = errors.New("attendance record write conflict")

// Store provides access to the attendance_records collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new attendance store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Get loads the record for (memberID, date). Returns mongo.ErrNoDocuments if
// the member has no writes for that day.
func (s *Store) Get(ctx context.Context, memberID primitive.ObjectID, date string) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.c.FindOne(ctx, bson.M{"member_id": memberID, "date": date}).Decode(&rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByDate returns every record of one day, ordered by member_id.
func (s *Store) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "member_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"date": date}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	recs := []models.AttendanceRecord{}
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// SlotWrite describes one slot update.
type SlotWrite struct {
	MemberID       primitive.ObjectID
	Date           string
	Prayer         models.Prayer
	Completed      bool
	Lock           bool
	WriterIdentity string

	// RequireUnlocked makes the write miss when the stored slot is locked.
	RequireUnlocked bool
}

// UpsertSlot applies w in a single atomic update, creating the record with
// all other slots defaulted when it does not exist yet. Only the named slot
// and the record-level writer/timestamp are changed on an existing record.
func (s *Store) UpsertSlot(ctx context.Context, w SlotWrite) (*models.AttendanceRecord, error) {
	if !w.Prayer.Valid() {
		return nil, fmt.Errorf("upsert slot: invalid prayer %d", w.Prayer)
	}
	now := time.Now().UTC()
	slot := "slots." + w.Prayer.String()

	filter := bson.M{"member_id": w.MemberID, "date": w.Date}
	if w.RequireUnlocked {
		filter[slot+".locked"] = bson.M{"$ne": true}
	}

	onInsert := bson.M{"created_at": now}
	for _, p := range models.Prayers() {
		if p != w.Prayer {
			onInsert["slots."+p.String()] = models.SlotState{}
		}
	}

	update := bson.M{
		"$set": bson.M{
			slot + ".completed":    w.Completed,
			slot + ".touched":      true,
			slot + ".locked":       w.Lock,
			"last_writer_identity": w.WriterIdentity,
			"updated_at":           now,
		},
		"$setOnInsert": onInsert,
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var rec models.AttendanceRecord
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrWriteConflict
		}
		return nil, err
	}
	return &rec, nil
}

// internal/app/store/attendancehistory/historystore.go
package attendancehistory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the name of the history collection.
const Collection = "attendance_history"

// QueryFilter defines filters for querying a member's history.
type QueryFilter struct {
	FromDate string // inclusive, YYYY-MM-DD
	ToDate   string // inclusive, YYYY-MM-DD
	Limit    int64
	Offset   int64
}

// Store is the append-only journal of permitted attendance writes.
// Entries are never updated or deleted.
type Store struct {
	c *mongo.Collection
}

// New creates a new history Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Append records one write. ID, WriteID and CreatedAt are filled in when zero.
func (s *Store) Append(ctx context.Context, e models.AttendanceHistoryEntry) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.WriteID == "" {
		e.WriteID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// ListForRecord returns the history of one (member, date) record, oldest first.
func (s *Store) ListForRecord(ctx context.Context, memberID primitive.ObjectID, date string) ([]models.AttendanceHistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"member_id": memberID, "date": date}, opts)
}

// CountForRecord returns the number of writes to one (member, date) record.
func (s *Store) CountForRecord(ctx context.Context, memberID primitive.ObjectID, date string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"member_id": memberID, "date": date})
}

// ListForMember returns a member's history, newest first.
func (s *Store) ListForMember(ctx context.Context, memberID primitive.ObjectID, filter QueryFilter) ([]models.AttendanceHistoryEntry, error) {
	query := bson.M{"member_id": memberID}

	if filter.FromDate != "" || filter.ToDate != "" {
		dateQuery := bson.M{}
		if filter.FromDate != "" {
			dateQuery["$gte"] = filter.FromDate
		}
		if filter.ToDate != "" {
			dateQuery["$lte"] = filter.ToDate
		}
		query["date"] = dateQuery
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	return s.find(ctx, query, opts)
}

func (s *Store) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.AttendanceHistoryEntry, error) {
	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []models.AttendanceHistoryEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

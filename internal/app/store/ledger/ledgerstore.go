// internal/app/store/ledger/ledgerstore.go
package ledgerstore

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds one entry per recorded machine-API request.
const Collection = "api_ledger"

// Entry is one request to the API-key surface.
type Entry struct {
	ID primitive.ObjectID `bson:"_id" json:"id"`

	RequestID       string `bson:"request_id" json:"request_id"`                                   // generated UUID
	ClientRequestID string `bson:"client_request_id,omitempty" json:"client_request_id,omitempty"` // X-Request-ID

	Method   string `bson:"method" json:"method"`
	Path     string `bson:"path" json:"path"`
	Query    string `bson:"query,omitempty" json:"query,omitempty"`
	RemoteIP string `bson:"remote_ip" json:"remote_ip"`

	RequestBodySize    int64  `bson:"request_body_size" json:"request_body_size"`
	RequestBodyPreview string `bson:"request_body_preview,omitempty" json:"request_body_preview,omitempty"`

	StatusCode int    `bson:"status_code" json:"status_code"`
	ErrorClass string `bson:"error_class,omitempty" json:"error_class,omitempty"` // validation, auth, forbidden, ...
	ErrorBody  string `bson:"error_body,omitempty" json:"error_body,omitempty"`   // truncated response body on failure

	DurationMs float64   `bson:"duration_ms" json:"duration_ms"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
}

// ListFilter narrows List and Count.
type ListFilter struct {
	StatusMin  int // inclusive, 0 means any
	PathPrefix string
	Since      *time.Time
	Limit      int64
	Offset     int64
}

func (f ListFilter) query() bson.M {
	q := bson.M{}
	if f.StatusMin > 0 {
		q["status_code"] = bson.M{"$gte": f.StatusMin}
	}
	if f.PathPrefix != "" {
		q["path"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.PathPrefix)}
	}
	if f.Since != nil {
		q["started_at"] = bson.M{"$gte": *f.Since}
	}
	return q
}

// Store provides ledger entry persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new ledger store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a new ledger entry.
func (s *Store) Create(ctx context.Context, entry Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

// GetByRequestID returns mongo.ErrNoDocuments for unknown ids.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Entry, error) {
	var entry Entry
	if err := s.c.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns matching entries, newest first. Limit defaults to 100.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cur, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	entries := []Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of matching entries.
func (s *Store) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// DeleteBefore removes entries that started before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"started_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

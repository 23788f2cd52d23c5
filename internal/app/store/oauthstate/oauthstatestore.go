// internal/app/store/oauthstate/oauthstatestore.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection holds pending OAuth state tokens. A TTL index on expires_at
// removes abandoned ones.
const Collection = "oauth_states"

// Lifetime is how long a state token stays valid.
const Lifetime = 10 * time.Minute

// State represents an OAuth state token record.
type State struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	State     string             `bson:"state"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Store provides access to the oauth_states collection.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new OAuth state store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection(Collection),
		now: time.Now,
	}
}

// Issue creates and stores a fresh random state token.
func (s *Store) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.Create(ctx, state); err != nil {
		return "", err
	}
	return state, nil
}

// Create stores the given state token.
func (s *Store) Create(ctx context.Context, state string) error {
	now := s.now().UTC()
	_, err := s.c.InsertOne(ctx, State{
		ID:        primitive.NewObjectID(),
		State:     state,
		ExpiresAt: now.Add(Lifetime),
		CreatedAt: now,
	})
	return err
}

// Verify consumes a state token. It reports false for unknown, expired or
// already used tokens; err is set only for storage failures.
func (s *Store) Verify(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	filter := bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}
	err := s.c.FindOneAndDelete(ctx, filter).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, err
	}
}

// DeleteExpired removes tokens past their expiry and returns how many went.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": s.now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

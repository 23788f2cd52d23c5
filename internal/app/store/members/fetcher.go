// internal/app/store/members/fetcher.go
package memberstore

import (
	"context"

	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auth"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/timeouts"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Fetcher implements auth.MemberFetcher so that role changes and
// deactivation take effect on the next request.
type Fetcher struct {
	members *mongo.Collection
	logger  *zap.Logger
}

// NewFetcher creates a MemberFetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		members: db.Collection(Collection),
		logger:  logger,
	}
}

// FetchMember returns nil if the member is not found, disabled, or the
// lookup fails.
func (f *Fetcher) FetchMember(ctx context.Context, memberID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var m models.Member
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"full_name": 1,
		"role":      1,
		"status":    1,
	})
	if err := f.members.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&m); err != nil {
		if err != mongo.ErrNoDocuments {
			f.logger.Warn("member fetch failed", zap.String("member_id", memberID), zap.Error(err))
		}
		return nil
	}
	if !m.IsActive() {
		return nil
	}

	return &auth.SessionUser{
		ID:   m.ID.Hex(),
		Name: m.FullName,
		Role: m.Role,
	}
}

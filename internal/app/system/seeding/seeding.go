// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	memberstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/members"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auditlog"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Config names the bootstrap admin. An empty AdminEmail disables seeding;
// the first member to sign in then becomes admin.
type Config struct {
	AdminEmail string
	AdminName  string
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, cfg Config, audit *auditlog.Logger, logger *zap.Logger) error {
	return seedAdmin(ctx, memberstore.New(db), cfg, audit, logger)
}

func seedAdmin(ctx context.Context, store *memberstore.Store, cfg Config, audit *auditlog.Logger, logger *zap.Logger) error {
	email := normalize.Email(cfg.AdminEmail)
	if email == "" {
		logger.Info("no seed admin configured; first sign-in becomes admin")
		return nil
	}

	m, created, err := store.EnsureAdmin(ctx, email, cfg.AdminName)
	if err != nil {
		logger.Error("failed to seed admin", zap.String("email", email), zap.Error(err))
		return err
	}
	if created {
		logger.Info("seeded admin member", zap.String("email", email), zap.String("member_id", m.ID.Hex()))
		audit.AdminSeeded(ctx, m.ID, email)
	} else {
		logger.Info("seed admin present", zap.String("email", email), zap.String("member_id", m.ID.Hex()))
	}
	return nil
}

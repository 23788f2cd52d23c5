// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/audit"
	ledgerstore "github.com/tanvirrrhasan/namajtracker/internal/app/store/ledger"
	"github.com/tanvirrrhasan/namajtracker/internal/app/store/oauthstate"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/auditlog"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/seeding"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/tasks"
	"github.com/tanvirrrhasan/namajtracker/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies timeout overrides from the environment, seeds the configured
// admin and starts background housekeeping. A non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts overridden from environment",
			zap.Int("overrides", n),
			zap.Duration("ping", cur.Ping),
			zap.Duration("short", cur.Short),
			zap.Duration("medium", cur.Medium),
			zap.Duration("long", cur.Long),
		)
	}

	auditLogger := newAuditLogger(appCfg, deps, logger)
	seedCfg := seeding.Config{
		AdminEmail: appCfg.SeedAdminEmail,
		AdminName:  appCfg.SeedAdminName,
	}
	if err := seeding.SeedAll(ctx, deps.MongoDatabase, seedCfg, auditLogger, logger); err != nil {
		logger.Error("failed to seed admin member", zap.Error(err))
		return err
	}

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)
	taskRunner.Register(tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger))
	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.RetentionJob("audit-retention", audit.New(deps.MongoDatabase), appCfg.AuditRetention, logger))
	}
	if appCfg.LedgerRetention > 0 {
		taskRunner.Register(tasks.RetentionJob("ledger-retention", ledgerstore.New(deps.MongoDatabase), appCfg.LedgerRetention, logger))
	}
	taskRunner.Start()
}

// newAuditLogger builds the audit fan-out from app config.
func newAuditLogger(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
}

// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StateExpirer drops OAuth state tokens that were never redeemed.
type StateExpirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Pruner drops documents older than a cutoff.
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OAuthStateCleanupJob sweeps expired OAuth state tokens. The TTL index on
// oauth_states also removes them, on its own schedule.
func OAuthStateCleanupJob(states StateExpirer, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			n, err := states.DeleteExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("removed expired oauth states", zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// RetentionJob deletes documents older than retention from p every six
// hours. A non-positive retention keeps everything and the job is a no-op.
func RetentionJob(name string, p Pruner, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			if retention <= 0 {
				return nil
			}
			cutoff := time.Now().UTC().Add(-retention)
			n, err := p.DeleteBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned old documents",
					zap.String("job", name),
					zap.Int64("deleted", n),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}

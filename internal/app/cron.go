package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	pkgcron "github.com/ctenarsky-denik/journal/internal/pkg/cron"
)

const refillJob = "refill_free_tier"

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, ledger *quota.Ledger, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	return sched.Register(pkgcron.Job{
		Name:        refillJob,
		Description: "restore the monthly credits of free accounts past their renewal date",
		Spec:        "@daily",
		Fn: func(ctx context.Context) error {
			n, err := ledger.RefillFreeTier(ctx, time.Now())
			if err != nil {
				return err
			}
			cronLogger.Info("free tier refill done", zap.Int64("accounts", n))
			return nil
		},
	})
}

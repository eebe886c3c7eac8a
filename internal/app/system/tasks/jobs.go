// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/reddinamica/reddinamica/internal/app/store/groups"
	"github.com/reddinamica/reddinamica/internal/app/store/queries/groupstats"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Job names.
const (
	GroupStatisticsReconcile = "group-statistics-reconcile"
	PendingExportRecovery    = "pending-export-recovery"
)

// GroupStatisticsReconcileJob recomputes the statistics of every group.
// It repairs groups left stale when a recompute after a lesson write
// failed.
func GroupStatisticsReconcileJob(db *mongo.Database, logger *zap.Logger) Job {
	groups := groupstore.New(db)
	return Job{
		Name:    GroupStatisticsReconcile,
		Timeout: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			ids, err := groups.IDs(ctx)
			if err != nil {
				return fmt.Errorf("list groups: %w", err)
			}
			var failed []error
			for _, id := range ids {
				if _, err := groupstats.Recompute(ctx, db, id); err != nil {
					if errors.Is(err, mongo.ErrNoDocuments) {
						continue
					}
					failed = append(failed, fmt.Errorf("group %s: %w", id.Hex(), err))
				}
			}
			logger.Info("group statistics reconciled",
				zap.Int("groups", len(ids)),
				zap.Int("failed", len(failed)))
			return errors.Join(failed...)
		},
	}
}

// PendingRecoverer finishes exports left pending.
type PendingRecoverer interface {
	RecoverPending(ctx context.Context, grace time.Duration) (int, error)
}

// PendingExportRecoveryJob completes catalog exports whose claim is older
// than grace.
func PendingExportRecoveryJob(r PendingRecoverer, grace time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:    PendingExportRecovery,
		Timeout: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := r.RecoverPending(ctx, grace)
			if n > 0 {
				logger.Info("pending exports recovered", zap.Int("count", n))
			}
			return err
		},
	}
}

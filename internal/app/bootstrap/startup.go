// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reddinamica/reddinamica/internal/app/store/audit"
	notificationstore "github.com/reddinamica/reddinamica/internal/app/store/notifications"
	userstore "github.com/reddinamica/reddinamica/internal/app/store/users"
	"github.com/reddinamica/reddinamica/internal/app/system/auditlog"
	"github.com/reddinamica/reddinamica/internal/app/system/catalogexport"
	"github.com/reddinamica/reddinamica/internal/app/system/events"
	"github.com/reddinamica/reddinamica/internal/app/system/metrics"
	"github.com/reddinamica/reddinamica/internal/app/system/notify"
	"github.com/reddinamica/reddinamica/internal/app/system/ratelimit"
	"github.com/reddinamica/reddinamica/internal/app/system/tasks"
	"github.com/reddinamica/reddinamica/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services are the long-lived collaborators shared by handlers and
// background tasks.
type Services struct {
	Metrics   *metrics.Recorder
	Bus       *events.Bus
	Audit     *auditlog.Logger
	Directory *notify.Directory
	Exporter  *catalogexport.Exporter
	Scheduler *tasks.Scheduler
	Posting   *ratelimit.Limiter
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies timeout overrides, builds the event bus with the notification
// dispatcher subscribed, and starts the reconciliation scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if deps.Services == nil {
		return fmt.Errorf("startup: DBDeps.Services not allocated")
	}
	svc, err := newServices(appCfg, deps, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	*deps.Services = *svc

	if appCfg.ReconcileSchedule != "" {
		svc.Scheduler.Start()
		logger.Info("reconciliation scheduler started", zap.String("schedule", appCfg.ReconcileSchedule))
	}
	return nil
}

// newServices wires the services without starting the scheduler.
func newServices(appCfg AppConfig, deps DBDeps, reg prometheus.Registerer, logger *zap.Logger) (*Services, error) {
	db := deps.MongoDatabase

	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	bus := events.NewBus(events.Config{
		Async:          true,
		Workers:        appCfg.NotifyWorkers,
		HandlerTimeout: timeouts.Medium(),
		Logger:         logger,
	})

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Academic: appCfg.AuditLogAcademic,
		Admin:    appCfg.AuditLogAdmin,
	})

	// A nil *redis.Client must not reach the directory as a non-nil
	// Cmdable.
	var cache redis.Cmdable
	if deps.Redis != nil {
		cache = deps.Redis
	}
	dir := notify.NewDirectory(userstore.New(db), appCfg.DirectoryCacheTTL, cache, logger)
	dispatcher := notify.NewDispatcher(notificationstore.New(db), dir, m, logger)
	if err := dispatcher.Register(bus); err != nil {
		return nil, fmt.Errorf("register notification dispatcher: %w", err)
	}

	exporter := catalogexport.New(db, bus, auditLog, m, logger)

	sched := tasks.NewScheduler(logger)
	if appCfg.ReconcileSchedule != "" {
		if err := sched.Add(appCfg.ReconcileSchedule, tasks.GroupStatisticsReconcileJob(db, logger)); err != nil {
			return nil, err
		}
		if err := sched.Add(appCfg.ReconcileSchedule, tasks.PendingExportRecoveryJob(exporter, appCfg.ExportPendingGrace, logger)); err != nil {
			return nil, err
		}
	}

	return &Services{
		Metrics:   m,
		Bus:       bus,
		Audit:     auditLog,
		Directory: dir,
		Exporter:  exporter,
		Scheduler: sched,
		Posting:   ratelimit.New(appCfg.PostsPerWindow, appCfg.PostWindow),
	}, nil
}

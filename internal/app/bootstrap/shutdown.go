// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work first, then drains the event bus so
// pending notifications are written, then closes Redis and MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if svc := deps.Services; svc != nil {
		if svc.Scheduler != nil {
			if err := svc.Scheduler.Stop(ctx); err != nil {
				logger.Warn("scheduler did not stop in time", zap.Error(err))
				errs = append(errs, err)
			}
		}
		if svc.Bus != nil {
			_ = svc.Bus.Close()
		}
		if svc.Posting != nil {
			svc.Posting.Stop()
		}
	}

	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

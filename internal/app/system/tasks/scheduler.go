// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named background task. Each run gets its own context bounded
// by Timeout.
type Job struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs Jobs on cron specs. A run that is still going when its
// next tick fires is skipped.
type Scheduler struct {
	c   *cron.Cron
	log *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		c: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: logger,
	}
}

// Add registers j under spec ("@every 15m", "0 3 * * *", ...).
func (s *Scheduler) Add(spec string, j Job) error {
	if j.Run == nil {
		return fmt.Errorf("job %q has no Run func", j.Name)
	}
	if _, err := s.c.AddFunc(spec, func() { s.Execute(j) }); err != nil {
		return fmt.Errorf("schedule %q (%s): %w", j.Name, spec, err)
	}
	s.log.Info("task scheduled", zap.String("job", j.Name), zap.String("spec", spec))
	return nil
}

// Execute runs j once, synchronously, with its timeout and logging.
func (s *Scheduler) Execute(j Job) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Error("task failed", zap.String("job", j.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Debug("task finished", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"techatlas/internal/observability"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Runner wraps a cron scheduler whose jobs share a base context. Overlapping
// runs of the same job are skipped and panics are recovered.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
	timeout time.Duration
}

// New returns a Runner. Specs take a leading seconds field.
func New(baseCtx context.Context, logger *zap.Logger, timeout time.Duration) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
		timeout: timeout,
	}
}

// Add schedules job under name.
func (r *Runner) Add(name, spec string, job Job) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() { r.Run(name, job) })
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	return id, nil
}

// Run executes job once with the runner's context and records the outcome.
func (r *Runner) Run(name string, job Job) {
	ctx := r.baseCtx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	result := "ok"
	if err != nil {
		result = "error"
		r.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
	} else {
		r.logger.Debug("scheduled job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
	observability.CronRuns.WithLabelValues(name, result).Inc()
}

func (r *Runner) Entries() []cron.Entry { return r.cron.Entries() }

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/job"
	"github.com/DeepakDhaka201/MetaBE/internal/app/metrics"
	"github.com/DeepakDhaka201/MetaBE/internal/app/system"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Cron cadences. Rewards at midnight UTC, ranks an hour later so they see the
// day's final investment state, cleanup every five minutes.
const (
	scheduleDailyRewards = "0 0 * * *"
	scheduleRankUpdate   = "0 1 * * *"
	scheduleCleanup      = "*/5 * * * *"
)

// Runner schedules the jobs service on cron cadences and participates in the
// system lifecycle.
type Runner struct {
	service *Service
	log     *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

var _ system.Service = (*Runner)(nil)

// NewRunner constructs a cron runner for the jobs service.
func NewRunner(service *Service, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("jobs-runner")
	}
	return &Runner{service: service, log: log}
}

func (r *Runner) Name() string { return "jobs-runner" }

// Start registers the cron entries and begins scheduling.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	c := cron.New(cron.WithLocation(time.UTC))

	register := func(spec, name string, fn func(context.Context, string) (job.Summary, error)) error {
		_, err := c.AddFunc(spec, func() {
			start := time.Now()
			summary, err := fn(runCtx, "")
			success := err == nil && len(summary.Failures) == 0
			metrics.RecordJobRun(name, time.Since(start), success)
			if err != nil {
				r.log.WithError(err).Errorf("job %s failed", name)
				return
			}
			for _, failure := range summary.Failures {
				r.log.WithField("job", name).Warn(failure)
			}
		})
		return err
	}

	if err := register(scheduleDailyRewards, JobDailyRewards, r.service.RunDailyRewards); err != nil {
		cancel()
		return err
	}
	if err := register(scheduleRankUpdate, JobRankUpdate, r.service.RunRankUpdate); err != nil {
		cancel()
		return err
	}
	if err := register(scheduleCleanup, JobAssignmentCleanup, r.service.RunAssignmentCleanup); err != nil {
		cancel()
		return err
	}

	c.Start()
	r.cron = c
	r.running = true
	r.log.Info("job runner started")
	return nil
}

// Stop halts scheduling and waits for in-flight jobs up to the context
// deadline.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	cancel := r.cancel
	r.cron = nil
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	if cancel != nil {
		defer cancel()
	}

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

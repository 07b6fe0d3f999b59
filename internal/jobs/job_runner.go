package jobs

import (
	"context"
	"fmt"
	"time"

	"rentshare-backend/internal/config"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Rental     service.RentalService
	Dispatcher service.NotificationDispatcher
}

// NewJobRunner creates a new job runner with all dependencies. m may be nil.
func NewJobRunner(services *Services, cfg *config.Config, m *metrics.Metrics) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		metrics:  m,
		timeout:  5 * time.Minute,
	}
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery, a deadline and
// run metrics. It reports whether the job succeeded.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (ok bool) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			ok = false
		}
		if jr.metrics != nil {
			jr.metrics.RecordJob(jobName, time.Since(start), ok)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return false
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return true
}

// RunAll runs every job once (for manual execution) and fails if any job failed.
func (jr *JobRunner) RunAll() error {
	failed := 0
	for _, run := range []func() bool{
		jr.DispatchOutbox,
		jr.SendRentalReminders,
		jr.SendOverdueReminders,
	} {
		if !run() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d job(s) failed", failed)
	}
	return nil
}

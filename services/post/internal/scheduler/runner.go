package scheduler

import (
	"context"
	"sync"
	"time"

	"tell-all/pkg/logger"
)

// Runner triggers every job once at start and then on each tick.
type Runner struct {
	jobs     []Job
	interval time.Duration
	logger   *logger.Logger
}

func NewRunner(interval time.Duration, log *logger.Logger, jobs ...Job) *Runner {
	return &Runner{jobs: jobs, interval: interval, logger: log}
}

// Start blocks until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("[SCHEDULER] starting %d jobs every %s", len(r.jobs), r.interval)
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("[SCHEDULER] stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce runs the jobs concurrently; tiers are independent of each other.
func (r *Runner) RunOnce(ctx context.Context) []*RunResult {
	results := make([]*RunResult, len(r.jobs))

	var wg sync.WaitGroup
	for i, job := range r.jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()

			result, err := job.Run(ctx)
			if err != nil {
				r.logger.Error("[SCHEDULER] %s failed: %v", job.Name(), err)
				return
			}
			results[i] = result
			if result.Eligible > 0 {
				r.logger.Info("[SCHEDULER] %s: %d eligible, %d published, %d notified", job.Name(), result.Eligible, result.Published, len(result.Recipients))
			}
		}(i, job)
	}
	wg.Wait()

	return results
}

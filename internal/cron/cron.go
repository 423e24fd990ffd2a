// Package cron runs background maintenance jobs on cron schedules.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Job is one scheduled task. Run errors are logged, never fatal.
type Job struct {
	Name string
	Expr string
	Run  func(ctx context.Context) error
}

// Runner checks job schedules once a minute.
type Runner struct {
	jobs []Job
	gron *gronx.Gronx
	log  *slog.Logger
	now  func() time.Time
}

// New creates an empty runner.
func New(log *slog.Logger) *Runner {
	return &Runner{gron: gronx.New(), log: log, now: time.Now}
}

// Add registers a job after validating its expression.
func (r *Runner) Add(job Job) error {
	if !r.gron.IsValid(job.Expr) {
		return fmt.Errorf("invalid cron expression %q for job %s", job.Expr, job.Name)
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Start ticks once a minute until ctx is done, running every job whose
// schedule is due. Jobs run sequentially on the tick goroutine; they are
// expected to be short.
func (r *Runner) Start(ctx context.Context) error {
	if len(r.jobs) == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	ref := r.now().Truncate(time.Minute)
	for _, job := range r.jobs {
		due, err := r.gron.IsDue(job.Expr, ref)
		if err != nil {
			r.log.Warn("cron schedule check failed", "job", job.Name, "error", err)
			continue
		}
		if !due {
			continue
		}
		r.log.Info("running scheduled job", "job", job.Name)
		if err := job.Run(ctx); err != nil {
			r.log.Error("scheduled job failed", "job", job.Name, "error", err)
		}
	}
}

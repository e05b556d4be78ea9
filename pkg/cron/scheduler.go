// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper removes entries older than a cutoff. Implemented by
// storage.TempStore and middleware.RateLimiter.
type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

type job struct {
	name      string
	schedule  string
	sweeper   Sweeper
	olderThan time.Duration
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	jobs   []job
	logger *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:   c,
		logger: logger,
	}
}

// Add registers a sweep run on schedule. Call before Start.
func (s *Scheduler) Add(name, schedule string, sweeper Sweeper, olderThan time.Duration) *Scheduler {
	s.jobs = append(s.jobs, job{name: name, schedule: schedule, sweeper: sweeper, olderThan: olderThan})
	return s
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.schedule, func() { s.sweep(j) }); err != nil {
			return fmt.Errorf("invalid schedule %q for %s sweep: %w", j.schedule, j.name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs every sweep synchronously and returns the number of entries removed.
func (s *Scheduler) RunNow() int {
	removed := 0
	for _, j := range s.jobs {
		removed += s.sweep(j)
	}
	return removed
}

func (s *Scheduler) sweep(j job) int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.sweeper.Sweep(ctx, j.olderThan)
	if err != nil {
		s.logger.Error("sweep failed", slog.String("job", j.name), slog.Any("error", err))
		return removed
	}

	if removed > 0 {
		s.logger.Info("stale entries removed", slog.String("job", j.name), slog.Int("removed", removed))
	}
	return removed
}

// Package scheduler drives the delivery core from wall-clock time. It holds
// no per-learner state: due-ness and deduplication live in the core, so a
// missed or repeated tick is harmless.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
)

// Deliverer is the core entry point invoked on each tick
type Deliverer interface {
	DeliverDue(ctx context.Context, now time.Time)
	SweepSessions(ctx context.Context, now time.Time)
}

// Scheduler manages the recurring delivery and sweep jobs
type Scheduler struct {
	scheduler *gocron.Scheduler
	deliverer Deliverer
}

// New creates a new scheduler instance
func New(deliverer Deliverer) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		deliverer: deliverer,
	}
}

// Start begins running all scheduled tasks in the background
func (s *Scheduler) Start(ctx context.Context) {
	// Check every minute which learners are due a delivery
	s.scheduler.Every(1).Minute().Do(func() {
		s.deliverer.DeliverDue(ctx, time.Now().UTC())
	})

	// Hourly safety net for expired sessions; DeliverDue sweeps too, but
	// this keeps sessions closing even with no active learners to plan for
	s.scheduler.Every(1).Hour().Do(func() {
		s.deliverer.SweepSessions(ctx, time.Now().UTC())
	})

	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

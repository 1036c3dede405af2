// Package scheduler resumes waiting journey executions whose wait has
// elapsed. It polls the execution store on a fixed cadence and publishes a
// resume command per due execution; workers do the actual advancement.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pulsecrm/lifecycle/pkg/eventbus"
	"github.com/pulsecrm/lifecycle/pkg/events"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"github.com/robfig/cron/v3"
)

const defaultPollSchedule = "@every 30s"

type Scheduler struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	cron        *cron.Cron
	schedule    string
	newID       func() string
	now         func() time.Time
}

// Option tweaks the scheduler's defaults.
type Option func(*Scheduler)

// WithSchedule overrides the polling cadence (a cron expression or @every
// duration).
func WithSchedule(schedule string) Option {
	return func(s *Scheduler) { s.schedule = schedule }
}

// WithClock overrides the due-time clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "scheduler"),
		schedule:    defaultPollSchedule,
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the polling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Poll(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Resume poll failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule resume poll: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "schedule", s.schedule)

	return nil
}

// Stop halts the polling loop and waits for a running poll to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
	s.logger.InfoContext(ctx, "Scheduler stopped")
}

// Poll publishes a resume command for every waiting execution whose
// wait_until has elapsed. Publishing is idempotent on the worker side: a
// worker that receives a resume for an already-resumed execution gets a state
// conflict and drops it.
func (s *Scheduler) Poll(ctx context.Context) error {
	due, err := s.persistence.ExecutionRepository().ListWaitingDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to list due executions: %w", err)
	}

	for _, execution := range due {
		event := events.ExecutionResume{
			BaseEvent: events.BaseEvent{
				ID:          s.newID(),
				Type:        events.ExecutionResumeEvent,
				Timestamp:   s.now(),
				JourneyID:   execution.JourneyID,
				ExecutionID: execution.ID,
				CustomerID:  execution.CustomerID,
			},
		}

		err := s.publisher.Publish(ctx, execution.ID, event)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish resume command",
				"execution_id", execution.ID, "error", err)

			continue
		}

		s.logger.DebugContext(ctx, "Published resume command",
			"execution_id", execution.ID,
			"journey_id", execution.JourneyID,
		)
	}

	if len(due) > 0 {
		s.logger.InfoContext(ctx, "Resume poll finished", "due_executions", len(due))
	}

	return nil
}

// Package main provides the Lifecycle worker: it consumes resume commands
// and advances waiting executions through the engine.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulsecrm/lifecycle/pkg/customers"
	"github.com/pulsecrm/lifecycle/pkg/dispatch"
	"github.com/pulsecrm/lifecycle/pkg/engine"
	"github.com/pulsecrm/lifecycle/pkg/eventbus"
	"github.com/pulsecrm/lifecycle/pkg/events"
	"github.com/pulsecrm/lifecycle/pkg/lock"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

type Worker struct {
	id       string
	engine   *engine.Engine
	eventBus eventbus.EventBus
	logger   *slog.Logger
}

func NewWorker(
	id string,
	p persistence.Persistence,
	store *customers.FileStore,
	dispatchers *dispatch.Registry,
	eventBus eventbus.EventBus,
	locker lock.Locker,
	logger *slog.Logger,
) *Worker {
	eng := engine.New(engine.Config{
		Persistence: p,
		Attributes:  store,
		Dispatchers: dispatchers,
		Publisher:   eventBus,
		Locker:      locker,
		Logger:      logger,
	})

	return &Worker{
		id:       id,
		engine:   eng,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := w.eventBus.Handle(events.ExecutionResumeEvent, w.handleResume)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker")

	return nil
}

func (w *Worker) handleResume(ctx context.Context, event any) error {
	resume, ok := event.(*events.ExecutionResume)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionResume")

		return nil
	}

	logger := w.logger.With(
		"execution_id", resume.ExecutionID,
		"journey_id", resume.JourneyID,
	)

	err := w.engine.Resume(ctx, resume.ExecutionID)
	if err != nil {
		// Stale or duplicated commands resolve to state conflicts; they are
		// dropped, not retried.
		if isStaleResume(err) {
			logger.DebugContext(ctx, "Dropping stale resume command", "reason", err)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to resume execution", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Resumed execution")

	return nil
}

func isStaleResume(err error) bool {
	return errors.Is(err, engine.ErrExecutionTerminal) ||
		errors.Is(err, engine.ErrNotWaiting) ||
		errors.Is(err, engine.ErrWaitNotElapsed) ||
		errors.Is(err, lock.ErrAlreadyLocked)
}

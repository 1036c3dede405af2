// Package main provides the Lifecycle scheduler: it polls for waiting
// executions whose wait has elapsed and publishes resume commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulsecrm/lifecycle/pkg/cmd"
	"github.com/pulsecrm/lifecycle/pkg/log"
	"github.com/pulsecrm/lifecycle/pkg/scheduler"
	cli "github.com/urfave/cli/v3"
)

func main() {
	logger := log.WithModule("lifecycle-scheduler")

	command := &cli.Command{
		Name:                  "lifecycle-scheduler",
		Usage:                 "Publish resume commands for elapsed waits",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "poll-schedule",
				Usage:   "Polling cadence (cron expression or @every duration)",
				Value:   "@every 30s",
				Sources: cli.EnvVars("POLL_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Lifecycle Scheduler")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "lifecycle-scheduler", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			sched := scheduler.New(persistence, eventBus, logger,
				scheduler.WithSchedule(command.String("poll-schedule")))

			err := sched.Start(ctx)
			if err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down scheduler")
			sched.Stop(ctx)

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

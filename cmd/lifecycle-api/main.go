package main

import (
	"context"
	"os"

	"github.com/pulsecrm/lifecycle/pkg/cmd"
	"github.com/pulsecrm/lifecycle/pkg/customers"
	"github.com/pulsecrm/lifecycle/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "lifecycle-api",
		Usage:                 "Manage journeys, segments and churn configuration",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "customers-file",
				Usage:    "Path to the customer snapshot file",
				Required: true,
				Sources:  cli.EnvVars("CUSTOMERS_FILE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for distributed execution locks (in-process locks when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "dispatch-channels",
				Usage:   "Comma-separated channels to register dispatchers for",
				Value:   "email",
				Sources: cli.EnvVars("DISPATCH_CHANNELS"),
			},
			&cli.StringFlag{
				Name:    "relay-url",
				Usage:   "Delivery relay URL (log dispatcher when empty)",
				Sources: cli.EnvVars("RELAY_URL"),
			},
			&cli.StringFlag{
				Name:    "relay-token",
				Usage:   "Bearer token for the delivery relay",
				Sources: cli.EnvVars("RELAY_TOKEN"),
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

			logger.InfoContext(ctx, "Initializing Lifecycle API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			store := customers.NewFileStore(command.String("customers-file"))
			if err := store.Load(); err != nil {
				return err
			}

			eventBus := cmd.NewEventBus(command.String("event-bus"), "lifecycle-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			locker := cmd.NewLocker(command.String("redis-url"))
			dispatchers := cmd.NewDispatchers(
				logger,
				command.String("dispatch-channels"),
				command.String("relay-url"),
				command.String("relay-token"),
			)

			api := NewAPI(logger, persistence, store, dispatchers, eventBus, locker)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

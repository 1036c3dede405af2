// Package main provides the Lifecycle API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/pulsecrm/lifecycle/pkg/customers"
	"github.com/pulsecrm/lifecycle/pkg/dispatch"
	"github.com/pulsecrm/lifecycle/pkg/engine"
	"github.com/pulsecrm/lifecycle/pkg/eventbus"
	"github.com/pulsecrm/lifecycle/pkg/lock"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"github.com/pulsecrm/lifecycle/pkg/services"
	"github.com/pulsecrm/lifecycle/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	store       *customers.FileStore
	dispatchers *dispatch.Registry
	eventBus    eventbus.EventBus
	locker      lock.Locker
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	store *customers.FileStore,
	dispatchers *dispatch.Registry,
	eventBus eventbus.EventBus,
	locker lock.Locker,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		store:       store,
		dispatchers: dispatchers,
		eventBus:    eventBus,
		locker:      locker,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	eng := engine.New(engine.Config{
		Persistence: a.persistence,
		Attributes:  a.store,
		Dispatchers: a.dispatchers,
		Publisher:   a.eventBus,
		Locker:      a.locker,
		Logger:      a.logger,
	})

	journeyService := services.NewJourney(a.persistence, a.validate)
	segmentService := services.NewSegment(a.persistence, a.store, a.validate)
	churnService := services.NewChurn(a.persistence, a.store, a.validate)
	executionService := services.NewExecution(a.persistence, eng)

	handlers := web.NewAPIHandlers(journeyService, segmentService, churnService, executionService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Lifecycle API")
	})

	j := app.Group("/journeys")
	j.Get("/", handlers.GetJourneys)
	j.Post("/", handlers.CreateJourney)
	j.Get("/:id", handlers.GetJourney)
	j.Patch("/:id", handlers.UpdateJourney)
	j.Delete("/:id", handlers.DeleteJourney)
	j.Get("/:id/validate", handlers.ValidateJourney)
	j.Post("/:id/activate", handlers.ActivateJourney)
	j.Post("/:id/pause", handlers.PauseJourney)
	j.Post("/:id/enroll", handlers.EnrollCustomer)

	s := app.Group("/segments")
	s.Get("/", handlers.GetSegments)
	s.Post("/", handlers.CreateSegment)
	s.Post("/preview", handlers.PreviewSegment)
	s.Get("/:id", handlers.GetSegment)
	s.Put("/:id", handlers.UpdateSegment)
	s.Delete("/:id", handlers.DeleteSegment)
	s.Get("/:id/evaluate", handlers.EvaluateSegment)

	ch := app.Group("/churn")
	ch.Get("/stages", handlers.GetChurnStages)
	ch.Post("/stages", handlers.SaveChurnStage)
	ch.Delete("/stages/:id", handlers.DeleteChurnStage)
	ch.Get("/metrics", handlers.GetChurnMetrics)
	ch.Post("/metrics", handlers.SaveChurnMetric)
	ch.Delete("/metrics/:id", handlers.DeleteChurnMetric)
	ch.Get("/classify/:customerId", handlers.ClassifyCustomer)

	e := app.Group("/executions")
	e.Get("/", handlers.GetExecutions)
	e.Get("/:id", handlers.GetExecution)
	e.Post("/:id/approve", handlers.ApproveExecution)
	e.Post("/:id/reject", handlers.RejectExecution)
	e.Post("/:id/cancel", handlers.CancelExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}

package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/pulsecrm/lifecycle/pkg/engine"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"github.com/pulsecrm/lifecycle/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service and engine
// layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErr *services.JourneyValidationError
	if errors.As(err, &validationErr) {
		// Activation failures return the full issue list so the authoring UI
		// can annotate the graph.
		return c.Status(fiber.StatusBadRequest).JSON(ValidationResponse{
			Valid:  false,
			Issues: validationErr.Issues,
		})
	}

	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, err.Error())

	case isEngineConflict(err):
		return conflict(c, err.Error())

	case errors.Is(err, engine.ErrTriggerNotSatisfied):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("trigger_not_satisfied").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case persistence.IsNotFound(err):
		return notFound(c, err.Error())

	default:
		return internalError(c, err)
	}
}

func isEngineConflict(err error) bool {
	return errors.Is(err, engine.ErrJourneyNotActive) ||
		errors.Is(err, engine.ErrAlreadyEnrolled) ||
		errors.Is(err, engine.ErrExecutionTerminal) ||
		errors.Is(err, engine.ErrNotRunning) ||
		errors.Is(err, engine.ErrNotWaiting) ||
		errors.Is(err, engine.ErrNotPendingApproval) ||
		errors.Is(err, engine.ErrWaitNotElapsed)
}

// Package web provides the HTTP handlers of the lifecycle REST API.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/services"
)

type APIHandlers struct {
	journeyService   *services.Journey
	segmentService   *services.Segment
	churnService     *services.Churn
	executionService *services.Execution
	validator        *validator.Validate
}

func NewAPIHandlers(
	journeyService *services.Journey,
	segmentService *services.Segment,
	churnService *services.Churn,
	executionService *services.Execution,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		journeyService:   journeyService,
		segmentService:   segmentService,
		churnService:     churnService,
		executionService: executionService,
		validator:        validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOK := h.journeyService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Lifecycle API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOK {
		status = "healthy"
		message = "Lifecycle API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Journeys

func (h *APIHandlers) GetJourneys(c fiber.Ctx) error {
	journeys, err := h.journeyService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(journeys)
}

func (h *APIHandlers) GetJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	j, err := h.journeyService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(j)
}

func (h *APIHandlers) CreateJourney(c fiber.Ctx) error {
	var req CreateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	nodes, err := toNodes(req.Nodes)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.journeyService.Create(c.Context(), &models.Journey{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       nodes,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	var req UpdateJourneyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.journeyService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Nodes != nil {
		nodes, err := toNodes(req.Nodes)
		if err != nil {
			return badRequest(c, err.Error())
		}

		existing.Nodes = nodes
	}

	updated, err := h.journeyService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	err := h.journeyService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ValidateJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	issues, err := h.journeyService.Validate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ValidationResponse{
		Valid:  len(issues) == 0,
		Issues: issues,
	})
}

func (h *APIHandlers) ActivateJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	activated, err := h.journeyService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(activated)
}

func (h *APIHandlers) PauseJourney(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Journey ID is required")
	}

	paused, err := h.journeyService.Pause(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(paused)
}

// Segments

func (h *APIHandlers) GetSegments(c fiber.Ctx) error {
	segments, err := h.segmentService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(segments)
}

func (h *APIHandlers) GetSegment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Segment ID is required")
	}

	seg, err := h.segmentService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(seg)
}

func (h *APIHandlers) CreateSegment(c fiber.Ctx) error {
	var req CreateSegmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.segmentService.Create(c.Context(), &models.Segment{
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateSegment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Segment ID is required")
	}

	var req CreateSegmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.segmentService.Update(c.Context(), id, &models.Segment{
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteSegment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Segment ID is required")
	}

	err := h.segmentService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) EvaluateSegment(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Segment ID is required")
	}

	result, err := h.segmentService.Evaluate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) PreviewSegment(c fiber.Ctx) error {
	var req PreviewSegmentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.segmentService.Preview(c.Context(), req.Criteria)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// Churn configuration and classification

func (h *APIHandlers) GetChurnStages(c fiber.Ctx) error {
	stages, err := h.churnService.ListStages(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stages)
}

func (h *APIHandlers) SaveChurnStage(c fiber.Ctx) error {
	var stage models.ChurnStage
	if err := c.Bind().JSON(&stage); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.churnService.SaveStage(c.Context(), &stage)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) DeleteChurnStage(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Stage ID is required")
	}

	err := h.churnService.DeleteStage(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetChurnMetrics(c fiber.Ctx) error {
	metrics, err := h.churnService.ListMetrics(c.Context(), c.Query("stage_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(metrics)
}

func (h *APIHandlers) SaveChurnMetric(c fiber.Ctx) error {
	var metric models.ChurnMetric
	if err := c.Bind().JSON(&metric); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.churnService.SaveMetric(c.Context(), &metric)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

func (h *APIHandlers) DeleteChurnMetric(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Metric ID is required")
	}

	err := h.churnService.DeleteMetric(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ClassifyCustomer(c fiber.Ctx) error {
	customerID := c.Params("customerId")
	if customerID == "" {
		return badRequest(c, "Customer ID is required")
	}

	result, err := h.churnService.Classify(c.Context(), customerID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// Executions

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	if journeyID := c.Query("journey_id"); journeyID != "" {
		executions, err := h.executionService.ListByJourney(c.Context(), journeyID)
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(executions)
	}

	if state := c.Query("state"); state != "" {
		executions, err := h.executionService.ListByState(c.Context(), models.ExecutionState(state))
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(executions)
	}

	return badRequest(c, "journey_id or state query parameter is required")
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.executionService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) EnrollCustomer(c fiber.Ctx) error {
	journeyID := c.Params("id")
	if journeyID == "" {
		return badRequest(c, "Journey ID is required")
	}

	var req EnrollRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.executionService.Enroll(c.Context(), journeyID, req.CustomerID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) ApproveExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	err := h.executionService.Approve(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RejectExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err := h.executionService.Reject(c.Context(), id, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	err := h.executionService.Cancel(c.Context(), id, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

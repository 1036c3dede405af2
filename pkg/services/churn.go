package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pulsecrm/lifecycle/pkg/churn"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// Not-found sentinels surfaced by the churn configuration repositories.
var (
	ErrStageNotFound  = persistence.ErrStageNotFound
	ErrMetricNotFound = persistence.ErrMetricNotFound
)

// Churn manages stage and metric configuration and classifies customers.
// Malformed metrics are rejected here, at authoring time; classification
// never errors on rule shape.
type Churn struct {
	persistence persistence.Persistence
	attributes  models.AttributeSource
	validator   *validator.Validate
}

// NewChurn creates a new churn service.
func NewChurn(persistence persistence.Persistence, attributes models.AttributeSource, validator *validator.Validate) *Churn {
	return &Churn{
		persistence: persistence,
		attributes:  attributes,
		validator:   validator,
	}
}

// ListStages retrieves all churn stages.
func (s *Churn) ListStages(ctx context.Context) ([]*models.ChurnStage, error) {
	stages, err := s.persistence.ChurnStageRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list churn stages: %w", err)
	}

	return stages, nil
}

// SaveStage creates or updates a churn stage.
func (s *Churn) SaveStage(ctx context.Context, stage *models.ChurnStage) (*models.ChurnStage, error) {
	if stage.Name == "" {
		return nil, ErrStageNameRequired
	}

	if stage.ID == "" {
		stage.ID = uuid.New().String()
	}

	if err := s.validator.Struct(stage); err != nil {
		return nil, NewValidationError("SaveStage", "INVALID_STAGE", err.Error(), ErrInvalidRequest)
	}

	err := s.persistence.ChurnStageRepository().Save(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to save churn stage: %w", err)
	}

	return stage, nil
}

// DeleteStage removes a churn stage. Metrics still pointing at it stop
// classifying anyone until they are repointed.
func (s *Churn) DeleteStage(ctx context.Context, stageID string) error {
	_, err := s.persistence.ChurnStageRepository().GetByID(ctx, stageID)
	if err != nil {
		return err
	}

	err = s.persistence.ChurnStageRepository().Delete(ctx, stageID)
	if err != nil {
		return fmt.Errorf("failed to delete churn stage: %w", err)
	}

	return nil
}

// ListMetrics retrieves all churn metrics, or the metrics of one stage when
// stageID is set.
func (s *Churn) ListMetrics(ctx context.Context, stageID string) ([]*models.ChurnMetric, error) {
	repo := s.persistence.ChurnMetricRepository()

	if stageID != "" {
		metrics, err := repo.ListByStage(ctx, stageID)
		if err != nil {
			return nil, fmt.Errorf("failed to list churn metrics: %w", err)
		}

		return metrics, nil
	}

	metrics, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list churn metrics: %w", err)
	}

	return metrics, nil
}

// SaveMetric creates or updates a churn metric after validating its
// operator/threshold combination.
func (s *Churn) SaveMetric(ctx context.Context, metric *models.ChurnMetric) (*models.ChurnMetric, error) {
	if err := metric.Validate(); err != nil {
		return nil, NewValidationError("SaveMetric", "INVALID_METRIC", err.Error(), ErrInvalidMetric)
	}

	if _, err := s.persistence.ChurnStageRepository().GetByID(ctx, metric.StageID); err != nil {
		return nil, err
	}

	if metric.ID == "" {
		metric.ID = uuid.New().String()
	}

	if err := s.validator.Struct(metric); err != nil {
		return nil, NewValidationError("SaveMetric", "INVALID_METRIC", err.Error(), ErrInvalidMetric)
	}

	err := s.persistence.ChurnMetricRepository().Save(ctx, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to save churn metric: %w", err)
	}

	return metric, nil
}

// DeleteMetric removes a churn metric.
func (s *Churn) DeleteMetric(ctx context.Context, metricID string) error {
	_, err := s.persistence.ChurnMetricRepository().GetByID(ctx, metricID)
	if err != nil {
		return err
	}

	err = s.persistence.ChurnMetricRepository().Delete(ctx, metricID)
	if err != nil {
		return fmt.Errorf("failed to delete churn metric: %w", err)
	}

	return nil
}

// ClassificationResult is one customer's classification with the timestamp it
// was computed at.
type ClassificationResult struct {
	CustomerID   string                `json:"customer_id"`
	Result       *churn.Classification `json:"result"`
	ClassifiedAt time.Time             `json:"classified_at"`
}

// Classify assigns the customer the highest-severity stage among those whose
// active rules fire, or the baseline stage when none do.
func (s *Churn) Classify(ctx context.Context, customerID string) (*ClassificationResult, error) {
	customer, err := s.attributes.GetAttributes(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attributes for customer %s: %w", customerID, err)
	}

	stages, err := s.persistence.ChurnStageRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list churn stages: %w", err)
	}

	metrics, err := s.persistence.ChurnMetricRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list churn metrics: %w", err)
	}

	classification, err := churn.Classify(customer, metrics, stages)
	if err != nil {
		return nil, err
	}

	return &ClassificationResult{
		CustomerID:   customerID,
		Result:       classification,
		ClassifiedAt: time.Now().UTC(),
	}, nil
}

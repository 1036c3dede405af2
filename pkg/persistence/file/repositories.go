package file

import (
	"context"
	"errors"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// JourneyRepository handles journey documents.
type JourneyRepository struct {
	store *documentStore
}

func (r *JourneyRepository) GetAll(_ context.Context) ([]*models.Journey, error) {
	journeys, err := loadAll[models.Journey](r.store)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Journey, 0, len(journeys))

	for _, journey := range journeys {
		if journey.DeletedAt == nil {
			active = append(active, journey)
		}
	}

	return active, nil
}

func (r *JourneyRepository) GetByID(_ context.Context, id string) (*models.Journey, error) {
	var journey models.Journey

	err := r.store.get(id, &journey)
	if err != nil {
		if errors.Is(err, errDocumentNotFound) {
			return nil, persistence.ErrJourneyNotFound
		}

		return nil, err
	}

	if journey.DeletedAt != nil {
		return nil, persistence.ErrJourneyNotFound
	}

	return &journey, nil
}

func (r *JourneyRepository) Save(_ context.Context, journey *models.Journey) error {
	return r.store.put(journey.ID, journey)
}

// Delete soft deletes, matching the PostgreSQL implementation.
func (r *JourneyRepository) Delete(ctx context.Context, id string) error {
	journey, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	journey.DeletedAt = &now

	return r.store.put(id, journey)
}

// ExecutionRepository handles journey execution documents.
type ExecutionRepository struct {
	store *documentStore
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.JourneyExecution, error) {
	var execution models.JourneyExecution

	err := r.store.get(id, &execution)
	if err != nil {
		if errors.Is(err, errDocumentNotFound) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return &execution, nil
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.JourneyExecution) error {
	return r.store.put(execution.ID, execution)
}

func (r *ExecutionRepository) ListByJourney(_ context.Context, journeyID string) ([]*models.JourneyExecution, error) {
	return r.filter(func(e *models.JourneyExecution) bool {
		return e.JourneyID == journeyID
	})
}

func (r *ExecutionRepository) ListByState(_ context.Context, state models.ExecutionState) ([]*models.JourneyExecution, error) {
	return r.filter(func(e *models.JourneyExecution) bool {
		return e.State == state
	})
}

func (r *ExecutionRepository) ListWaitingDue(_ context.Context, before time.Time) ([]*models.JourneyExecution, error) {
	return r.filter(func(e *models.JourneyExecution) bool {
		return e.State == models.ExecutionStateWaiting &&
			e.WaitUntil != nil && !e.WaitUntil.After(before)
	})
}

func (r *ExecutionRepository) ExistsForCustomer(_ context.Context, journeyID, customerID string) (bool, error) {
	matches, err := r.filter(func(e *models.JourneyExecution) bool {
		return e.JourneyID == journeyID && e.CustomerID == customerID
	})
	if err != nil {
		return false, err
	}

	return len(matches) > 0, nil
}

func (r *ExecutionRepository) filter(keep func(*models.JourneyExecution) bool) ([]*models.JourneyExecution, error) {
	executions, err := loadAll[models.JourneyExecution](r.store)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.JourneyExecution, 0)

	for _, execution := range executions {
		if keep(execution) {
			matches = append(matches, execution)
		}
	}

	return matches, nil
}

// SegmentRepository handles segment documents.
type SegmentRepository struct {
	store *documentStore
}

func (r *SegmentRepository) GetAll(_ context.Context) ([]*models.Segment, error) {
	segments, err := loadAll[models.Segment](r.store)
	if err != nil {
		return nil, err
	}

	active := make([]*models.Segment, 0, len(segments))

	for _, segment := range segments {
		if segment.DeletedAt == nil {
			active = append(active, segment)
		}
	}

	return active, nil
}

func (r *SegmentRepository) GetByID(_ context.Context, id string) (*models.Segment, error) {
	var segment models.Segment

	err := r.store.get(id, &segment)
	if err != nil {
		if errors.Is(err, errDocumentNotFound) {
			return nil, persistence.ErrSegmentNotFound
		}

		return nil, err
	}

	if segment.DeletedAt != nil {
		return nil, persistence.ErrSegmentNotFound
	}

	return &segment, nil
}

func (r *SegmentRepository) Save(_ context.Context, segment *models.Segment) error {
	return r.store.put(segment.ID, segment)
}

func (r *SegmentRepository) Delete(ctx context.Context, id string) error {
	segment, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	segment.DeletedAt = &now

	return r.store.put(id, segment)
}

// ChurnStageRepository handles churn stage documents.
type ChurnStageRepository struct {
	store *documentStore
}

func (r *ChurnStageRepository) GetAll(_ context.Context) ([]*models.ChurnStage, error) {
	return loadAll[models.ChurnStage](r.store)
}

func (r *ChurnStageRepository) GetByID(_ context.Context, id string) (*models.ChurnStage, error) {
	var stage models.ChurnStage

	err := r.store.get(id, &stage)
	if err != nil {
		if errors.Is(err, errDocumentNotFound) {
			return nil, persistence.ErrStageNotFound
		}

		return nil, err
	}

	return &stage, nil
}

func (r *ChurnStageRepository) Save(_ context.Context, stage *models.ChurnStage) error {
	return r.store.put(stage.ID, stage)
}

func (r *ChurnStageRepository) Delete(_ context.Context, id string) error {
	err := r.store.remove(id)
	if errors.Is(err, errDocumentNotFound) {
		return persistence.ErrStageNotFound
	}

	return err
}

// ChurnMetricRepository handles churn metric documents.
type ChurnMetricRepository struct {
	store *documentStore
}

func (r *ChurnMetricRepository) GetAll(_ context.Context) ([]*models.ChurnMetric, error) {
	return loadAll[models.ChurnMetric](r.store)
}

func (r *ChurnMetricRepository) GetByID(_ context.Context, id string) (*models.ChurnMetric, error) {
	var metric models.ChurnMetric

	err := r.store.get(id, &metric)
	if err != nil {
		if errors.Is(err, errDocumentNotFound) {
			return nil, persistence.ErrMetricNotFound
		}

		return nil, err
	}

	return &metric, nil
}

func (r *ChurnMetricRepository) ListByStage(ctx context.Context, stageID string) ([]*models.ChurnMetric, error) {
	metrics, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.ChurnMetric, 0)

	for _, metric := range metrics {
		if metric.StageID == stageID {
			matches = append(matches, metric)
		}
	}

	return matches, nil
}

func (r *ChurnMetricRepository) Save(_ context.Context, metric *models.ChurnMetric) error {
	return r.store.put(metric.ID, metric)
}

func (r *ChurnMetricRepository) Delete(_ context.Context, id string) error {
	err := r.store.remove(id)
	if errors.Is(err, errDocumentNotFound) {
		return persistence.ErrMetricNotFound
	}

	return err
}

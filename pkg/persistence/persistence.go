// Package persistence provides the data storage abstraction for journeys,
// executions, segments and churn configuration.
package persistence

import (
	"context"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

// Persistence exposes the durable repositories of the lifecycle core. The
// core defines the record shapes; implementations own the storage technology.
type Persistence interface {
	JourneyRepository() JourneyRepository
	ExecutionRepository() ExecutionRepository
	SegmentRepository() SegmentRepository
	ChurnStageRepository() ChurnStageRepository
	ChurnMetricRepository() ChurnMetricRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type JourneyRepository interface {
	GetAll(ctx context.Context) ([]*models.Journey, error)
	GetByID(ctx context.Context, id string) (*models.Journey, error)
	Save(ctx context.Context, journey *models.Journey) error
	Delete(ctx context.Context, id string) error
}

type ExecutionRepository interface {
	GetByID(ctx context.Context, id string) (*models.JourneyExecution, error)
	Save(ctx context.Context, execution *models.JourneyExecution) error
	ListByJourney(ctx context.Context, journeyID string) ([]*models.JourneyExecution, error)
	ListByState(ctx context.Context, state models.ExecutionState) ([]*models.JourneyExecution, error)

	// ListWaitingDue returns waiting executions whose wait_until has elapsed.
	ListWaitingDue(ctx context.Context, before time.Time) ([]*models.JourneyExecution, error)

	// ExistsForCustomer reports whether the customer already has an execution
	// (in any state) for the journey, used to prevent double enrollment.
	ExistsForCustomer(ctx context.Context, journeyID, customerID string) (bool, error)
}

type SegmentRepository interface {
	GetAll(ctx context.Context) ([]*models.Segment, error)
	GetByID(ctx context.Context, id string) (*models.Segment, error)
	Save(ctx context.Context, segment *models.Segment) error
	Delete(ctx context.Context, id string) error
}

type ChurnStageRepository interface {
	GetAll(ctx context.Context) ([]*models.ChurnStage, error)
	GetByID(ctx context.Context, id string) (*models.ChurnStage, error)
	Save(ctx context.Context, stage *models.ChurnStage) error
	Delete(ctx context.Context, id string) error
}

type ChurnMetricRepository interface {
	GetAll(ctx context.Context) ([]*models.ChurnMetric, error)
	GetByID(ctx context.Context, id string) (*models.ChurnMetric, error)
	ListByStage(ctx context.Context, stageID string) ([]*models.ChurnMetric, error)
	Save(ctx context.Context, metric *models.ChurnMetric) error
	Delete(ctx context.Context, id string) error
}

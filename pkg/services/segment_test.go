package services_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/lifecycle/pkg/customers"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence/file"
	"github.com/pulsecrm/lifecycle/pkg/services"
)

func newSegmentService(t *testing.T) (*services.Segment, *customers.FileStore) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	population := customers.NewFileStore("unused.json")
	validate := validator.New(validator.WithRequiredStructEnabled())

	return services.NewSegment(store, population, validate), population
}

func TestCreateSegment(t *testing.T) {
	ctx := context.Background()
	service, _ := newSegmentService(t)

	created, err := service.Create(ctx, &models.Segment{
		Name: "Dormant high value",
		Criteria: models.SegmentCriteria{
			LifecycleStages: []string{"dormant"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	loaded, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dormant"}, loaded.Criteria.LifecycleStages)
}

func TestCreateSegmentRequiresName(t *testing.T) {
	service, _ := newSegmentService(t)

	_, err := service.Create(context.Background(), &models.Segment{})
	assert.ErrorIs(t, err, services.ErrSegmentNameRequired)

	_, err = service.Create(context.Background(), nil)
	assert.ErrorIs(t, err, services.ErrSegmentNil)
}

func TestEvaluateStoredSegment(t *testing.T) {
	ctx := context.Background()
	service, population := newSegmentService(t)

	population.Put(&models.Customer{ID: "cust-1", Name: "Ada", LifecycleStage: "active", LifetimeValue: 1200})
	population.Put(&models.Customer{ID: "cust-2", Name: "Grace", LifecycleStage: "dormant", LifetimeValue: 800, ChurnRisk: models.ChurnRiskHigh})

	created, err := service.Create(ctx, &models.Segment{
		Name: "Dormant",
		Criteria: models.SegmentCriteria{
			LifecycleStages: []string{"dormant"},
		},
	})
	require.NoError(t, err)

	result, err := service.Evaluate(ctx, created.ID)
	require.NoError(t, err)

	require.Len(t, result.Matching, 1)
	assert.Equal(t, "cust-2", result.Matching[0].ID)
	assert.Equal(t, 1, result.Metrics.CustomerCount)
	assert.InDelta(t, 1.0, result.Metrics.ChurnRate, 0.001)
}

func TestEvaluateUnknownSegment(t *testing.T) {
	service, _ := newSegmentService(t)

	_, err := service.Evaluate(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrSegmentNotFound)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	service, population := newSegmentService(t)

	population.Put(&models.Customer{ID: "cust-1", Name: "Ada", LifecycleStage: "active"})

	result, err := service.Preview(ctx, models.SegmentCriteria{
		LifecycleStages: []string{"active"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Matching, 1)

	segments, err := service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestUpdateSegmentPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	service, _ := newSegmentService(t)

	created, err := service.Create(ctx, &models.Segment{Name: "Dormant"})
	require.NoError(t, err)

	updated, err := service.Update(ctx, created.ID, &models.Segment{
		Name: "Dormant v2",
		Criteria: models.SegmentCriteria{
			SentimentBuckets: []string{"negative"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Dormant v2", updated.Name)
}

func TestDeleteSegment(t *testing.T) {
	ctx := context.Background()
	service, _ := newSegmentService(t)

	created, err := service.Create(ctx, &models.Segment{Name: "Dormant"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.FetchByID(ctx, created.ID)
	assert.ErrorIs(t, err, services.ErrSegmentNotFound)
}

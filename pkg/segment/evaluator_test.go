package segment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/segment"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testPopulation() []*models.Customer {
	churned := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

	return []*models.Customer{
		{
			ID:             "cust-ada",
			Name:           "Ada Lovelace",
			LifecycleStage: "active",
			ChurnRisk:      models.ChurnRiskLow,
			Location:       "London, UK",
			Age:            36,
			DaysInactive:   5,
			LifetimeValue:  1200,
		},
		{
			ID:             "cust-grace",
			Name:           "Grace Hopper",
			LifecycleStage: "dormant",
			ChurnRisk:      models.ChurnRiskHigh,
			Location:       "New York, US",
			Age:            48,
			DaysInactive:   95,
			LifetimeValue:  800,
			ChurnDate:      &churned,
		},
		{
			ID:             "cust-alan",
			Name:           "Alan Turing",
			LifecycleStage: "active",
			ChurnRisk:      models.ChurnRiskMedium,
			Location:       "Manchester, UK",
			Age:            41,
			DaysInactive:   20,
			LifetimeValue:  2000,
		},
	}
}

func TestEvaluateEmptyCriteriaMatchesEveryone(t *testing.T) {
	seg := &models.Segment{ID: "seg-1", Name: "Everyone"}

	result := segment.Evaluate(seg, testPopulation(), time.Now().UTC())

	assert.Len(t, result.Matching, 3)
	assert.Equal(t, 3, result.Metrics.CustomerCount)
}

func TestEvaluateCombinesCriteriaWithAnd(t *testing.T) {
	seg := &models.Segment{
		ID:   "seg-1",
		Name: "Active UK",
		Criteria: models.SegmentCriteria{
			LifecycleStages: []string{"active"},
			CustomFilters: &models.CustomFilters{
				Locations: []string{"UK"},
				MaxAge:    intPtr(40),
			},
		},
	}

	result := segment.Evaluate(seg, testPopulation(), time.Now().UTC())

	assert.Len(t, result.Matching, 1)
	assert.Equal(t, "cust-ada", result.Matching[0].ID)
}

func TestMatchesLocationIsSubstringContainsAny(t *testing.T) {
	criteria := &models.SegmentCriteria{
		CustomFilters: &models.CustomFilters{
			Locations: []string{"Berlin", "UK"},
		},
	}

	now := time.Now().UTC()

	assert.True(t, segment.Matches(criteria, &models.Customer{Location: "London, UK"}, now))
	assert.True(t, segment.Matches(criteria, &models.Customer{Location: "Berlin, DE"}, now))
	assert.False(t, segment.Matches(criteria, &models.Customer{Location: "Paris, FR"}, now))
}

func TestMatchesNumericRangesAreInclusive(t *testing.T) {
	criteria := &models.SegmentCriteria{
		CustomFilters: &models.CustomFilters{
			MinLifetimeValue: floatPtr(800),
			MaxLifetimeValue: floatPtr(1200),
		},
	}

	now := time.Now().UTC()

	assert.True(t, segment.Matches(criteria, &models.Customer{LifetimeValue: 800}, now))
	assert.True(t, segment.Matches(criteria, &models.Customer{LifetimeValue: 1200}, now))
	assert.False(t, segment.Matches(criteria, &models.Customer{LifetimeValue: 1201}, now))
}

func TestMatchesMaxDaysSinceChurn(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	criteria := &models.SegmentCriteria{
		CustomFilters: &models.CustomFilters{
			MaxDaysSinceChurn: intPtr(10),
		},
	}

	// Days are counted as a whole-day floor of the elapsed time.
	within := now.Add(-10*24*time.Hour - 12*time.Hour)
	beyond := now.Add(-11 * 24 * time.Hour)

	assert.True(t, segment.Matches(criteria, &models.Customer{ChurnDate: &within}, now))
	assert.False(t, segment.Matches(criteria, &models.Customer{ChurnDate: &beyond}, now))

	// Customers who never churned pass the filter.
	assert.True(t, segment.Matches(criteria, &models.Customer{}, now))
}

func TestEvaluateComputesMetrics(t *testing.T) {
	seg := &models.Segment{ID: "seg-1", Name: "Everyone"}

	result := segment.Evaluate(seg, testPopulation(), time.Now().UTC())

	assert.InDelta(t, 4000.0, result.Metrics.TotalLifetimeValue, 0.001)
	assert.InDelta(t, 4000.0/3, result.Metrics.AverageLifetimeValue, 0.001)
	assert.InDelta(t, 1.0/3, result.Metrics.ChurnRate, 0.001)
}

func TestEvaluateEmptyPopulation(t *testing.T) {
	seg := &models.Segment{ID: "seg-1", Name: "Everyone"}

	result := segment.Evaluate(seg, nil, time.Now().UTC())

	assert.Empty(t, result.Matching)
	assert.Equal(t, 0, result.Metrics.CustomerCount)
	assert.Zero(t, result.Metrics.ChurnRate)
}

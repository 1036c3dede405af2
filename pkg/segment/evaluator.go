// Package segment evaluates declarative segment definitions against a
// customer population.
package segment

import (
	"slices"
	"strings"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/models"
)

// Result holds the matching members and the aggregate metrics of one segment
// evaluation.
type Result struct {
	Matching []*models.Customer    `json:"matching"`
	Metrics  models.SegmentMetrics `json:"metrics"`
}

// Evaluate applies the segment's criteria to the population. The per-customer
// predicate is a conjunction of independent sub-predicates, each passing when
// its criterion is unset; a segment with no criteria matches everyone.
// Evaluation is pure and safe to run concurrently across populations.
func Evaluate(seg *models.Segment, customers []*models.Customer, now time.Time) *Result {
	matching := make([]*models.Customer, 0, len(customers))

	for _, customer := range customers {
		if Matches(&seg.Criteria, customer, now) {
			matching = append(matching, customer)
		}
	}

	return &Result{
		Matching: matching,
		Metrics:  computeMetrics(matching),
	}
}

// Matches reports whether a single customer satisfies all set criteria.
func Matches(criteria *models.SegmentCriteria, customer *models.Customer, now time.Time) bool {
	if len(criteria.LifecycleStages) > 0 && !slices.Contains(criteria.LifecycleStages, customer.LifecycleStage) {
		return false
	}

	if len(criteria.SentimentBuckets) > 0 && !slices.Contains(criteria.SentimentBuckets, customer.SentimentBucket) {
		return false
	}

	if criteria.CustomFilters != nil {
		return matchesFilters(criteria.CustomFilters, customer, now)
	}

	return true
}

func matchesFilters(f *models.CustomFilters, c *models.Customer, now time.Time) bool {
	if !inRangeFloat(c.LifetimeValue, f.MinLifetimeValue, f.MaxLifetimeValue) {
		return false
	}

	if !inRangeFloat(c.AccountBalance, f.MinAccountBalance, f.MaxAccountBalance) {
		return false
	}

	if !inRangeInt(c.Age, f.MinAge, f.MaxAge) {
		return false
	}

	if !inRangeInt(c.DaysInactive, f.MinDaysInactive, f.MaxDaysInactive) {
		return false
	}

	if len(f.Genders) > 0 && !slices.Contains(f.Genders, c.Gender) {
		return false
	}

	if len(f.ChurnRisks) > 0 && !slices.Contains(f.ChurnRisks, c.ChurnRisk) {
		return false
	}

	if len(f.EngagementLevels) > 0 && !slices.Contains(f.EngagementLevels, c.EngagementLevel) {
		return false
	}

	if len(f.Locations) > 0 && !containsAnyLocation(f.Locations, c.Location) {
		return false
	}

	// Customers without a churn date always pass this filter.
	if f.MaxDaysSinceChurn != nil && c.ChurnDate != nil {
		days := int(now.Sub(*c.ChurnDate).Hours() / 24) // Whole-day floor
		if days > *f.MaxDaysSinceChurn {
			return false
		}
	}

	return true
}

// containsAnyLocation is a substring match: the customer's location string
// must contain at least one of the configured locations.
func containsAnyLocation(locations []string, location string) bool {
	for _, candidate := range locations {
		if strings.Contains(location, candidate) {
			return true
		}
	}

	return false
}

// Inclusive on both bounds.
func inRangeFloat(value float64, low, high *float64) bool {
	if low != nil && value < *low {
		return false
	}

	if high != nil && value > *high {
		return false
	}

	return true
}

func inRangeInt(value int, low, high *int) bool {
	if low != nil && value < *low {
		return false
	}

	if high != nil && value > *high {
		return false
	}

	return true
}

func computeMetrics(matching []*models.Customer) models.SegmentMetrics {
	metrics := models.SegmentMetrics{
		CustomerCount: len(matching),
	}

	if len(matching) == 0 {
		return metrics
	}

	highRisk := 0

	for _, customer := range matching {
		metrics.TotalLifetimeValue += customer.LifetimeValue

		if customer.ChurnRisk == models.ChurnRiskHigh {
			highRisk++
		}
	}

	metrics.AverageLifetimeValue = metrics.TotalLifetimeValue / float64(len(matching))
	metrics.ChurnRate = float64(highRisk) / float64(len(matching))

	return metrics
}

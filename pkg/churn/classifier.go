// Package churn classifies customers into severity-ranked churn stages by
// evaluating weighted comparison rules.
package churn

import (
	"errors"
	"sort"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/rules"
)

// Classification is the outcome of classifying one customer. Evidence holds
// the summed weight of fired rules per stage id; it is analytics metadata and
// never influences which stage wins.
type Classification struct {
	Stage      *models.ChurnStage `json:"stage"`
	FiredRules []string           `json:"fired_rules,omitempty"` // Metric ids that fired
	Evidence   map[string]int     `json:"evidence,omitempty"`    // Stage id -> summed weight
}

var ErrNoStages = errors.New("at least one churn stage is required")

// Classify evaluates the active rules against the customer and assigns the
// highest-severity stage among those whose rules fired. When no rule fires
// the customer is assigned the baseline (lowest severity) stage. Severity is
// the sole resolution policy; rule weight is exposed as evidence only.
func Classify(customer *models.Customer, metrics []*models.ChurnMetric, stages []*models.ChurnStage) (*Classification, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}

	stagesByID := make(map[string]*models.ChurnStage, len(stages))
	for _, stage := range stages {
		stagesByID[stage.ID] = stage
	}

	result := &Classification{
		Evidence: make(map[string]int),
	}

	var winner *models.ChurnStage

	for _, metric := range metrics {
		if !metric.Active {
			continue
		}

		value, present := customer.AttributeValue(metric.Field)
		if !rules.Evaluate(metric, value, present) {
			continue
		}

		stage, known := stagesByID[metric.StageID]
		if !known {
			// A rule pointing at a deleted stage cannot classify anyone.
			continue
		}

		result.FiredRules = append(result.FiredRules, metric.ID)
		result.Evidence[stage.ID] += metric.Weight

		if winner == nil || stage.Severity > winner.Severity {
			winner = stage
		}
	}

	if winner == nil {
		winner = Baseline(stages)
	}

	result.Stage = winner

	return result, nil
}

// Baseline returns the lowest-severity stage, the healthy-equivalent bucket
// customers fall into when no rule fires.
func Baseline(stages []*models.ChurnStage) *models.ChurnStage {
	baseline := stages[0]
	for _, stage := range stages[1:] {
		if stage.Severity < baseline.Severity {
			baseline = stage
		}
	}

	return baseline
}

// Ranked returns stage ids ordered by evidence weight, strongest first. Ties
// break by stage id for a stable order. Consumed by analytics views only.
func (c *Classification) Ranked() []string {
	ids := make([]string, 0, len(c.Evidence))
	for id := range c.Evidence {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if c.Evidence[ids[i]] != c.Evidence[ids[j]] {
			return c.Evidence[ids[i]] > c.Evidence[ids[j]]
		}

		return ids[i] < ids[j]
	})

	return ids
}

// Package rules evaluates declarative comparison rules against customer
// attribute values.
package rules

import (
	"github.com/pulsecrm/lifecycle/pkg/models"
)

// Evaluate applies a churn metric's comparison to an attribute value. It
// never returns an error: a rule referencing a missing or incompatible
// attribute simply does not match, so misconfigured rules under-trigger
// instead of crashing evaluation.
func Evaluate(metric *models.ChurnMetric, value any, present bool) bool {
	if !present {
		return false
	}

	return Compare(metric.Operator, value, metric.Threshold, metric.ThresholdMax)
}

// Compare applies an operator to a value against one threshold (or two for
// between). Numeric comparisons coerce both sides to float64; eq additionally
// supports string equality. Between is inclusive on both bounds.
func Compare(operator models.RuleOperator, value, threshold, thresholdMax any) bool {
	switch operator {
	case models.OperatorBetween:
		v, vOK := models.NumericValue(value)
		low, lowOK := models.NumericValue(threshold)
		high, highOK := models.NumericValue(thresholdMax)

		if !vOK || !lowOK || !highOK {
			return false
		}

		return low <= v && v <= high
	case models.OperatorEQ:
		if v, vOK := models.NumericValue(value); vOK {
			t, tOK := models.NumericValue(threshold)

			return tOK && v == t
		}

		vs, vOK := value.(string)
		ts, tOK := threshold.(string)

		return vOK && tOK && vs == ts
	case models.OperatorGT, models.OperatorGTE, models.OperatorLT, models.OperatorLTE:
		v, vOK := models.NumericValue(value)
		t, tOK := models.NumericValue(threshold)

		if vOK && tOK {
			return compareOrdered(operator, v, t)
		}

		vs, vsOK := value.(string)
		ts, tsOK := threshold.(string)

		if vsOK && tsOK {
			return compareOrdered(operator, vs, ts)
		}

		return false
	default:
		return false
	}
}

func compareOrdered[T float64 | string](operator models.RuleOperator, value, threshold T) bool {
	switch operator {
	case models.OperatorGT:
		return value > threshold
	case models.OperatorGTE:
		return value >= threshold
	case models.OperatorLT:
		return value < threshold
	case models.OperatorLTE:
		return value <= threshold
	default:
		return false
	}
}

package models

import (
	"errors"
	"fmt"
)

// RuleOperator is the comparison applied by a churn metric or journey
// condition against a customer attribute.
type RuleOperator string

const (
	OperatorGT      RuleOperator = "gt"
	OperatorGTE     RuleOperator = "gte"
	OperatorLT      RuleOperator = "lt"
	OperatorLTE     RuleOperator = "lte"
	OperatorEQ      RuleOperator = "eq"
	OperatorBetween RuleOperator = "between"
)

// ValidOperator reports whether op is one of the supported comparisons.
func ValidOperator(op RuleOperator) bool {
	switch op {
	case OperatorGT, OperatorGTE, OperatorLT, OperatorLTE, OperatorEQ, OperatorBetween:
		return true
	default:
		return false
	}
}

// ChurnStage is a named, severity-ranked disengagement bucket. Severities
// totally order the stages; exactly one baseline stage carries the lowest
// severity.
type ChurnStage struct {
	ID       string `json:"id"`
	Name     string `json:"name"     validate:"required,min=2"`
	Slug     string `json:"slug"     validate:"required,lowercase"`
	Severity int    `json:"severity" validate:"min=0"`
	Color    string `json:"color"` // Display only
}

// ChurnMetric is a single weighted comparison rule that, when fired, signals
// its stage as a candidate classification.
type ChurnMetric struct {
	ID           string       `json:"id"`
	StageID      string       `json:"stage_id"  validate:"required"`
	Field        string       `json:"field"     validate:"required"`
	Operator     RuleOperator `json:"operator"  validate:"required"`
	Threshold    any          `json:"threshold"`
	ThresholdMax any          `json:"threshold_max,omitempty"`
	Weight       int          `json:"weight"    validate:"min=1,max=10"`
	Active       bool         `json:"active"`
}

var (
	ErrUnknownOperator     = errors.New("unknown rule operator")
	ErrThresholdMaxMissing = errors.New("between operator requires threshold_max")
	ErrThresholdRange      = errors.New("threshold_max must be greater than threshold")
	ErrThresholdNotNumeric = errors.New("between operator requires numeric thresholds")
)

// Validate checks the operator/threshold combination. Malformed rules are a
// configuration error rejected at authoring time, never tolerated at
// evaluation time.
func (m *ChurnMetric) Validate() error {
	if !ValidOperator(m.Operator) {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, m.Operator)
	}

	if m.Operator != OperatorBetween {
		return nil
	}

	if m.ThresholdMax == nil {
		return ErrThresholdMaxMissing
	}

	low, lowOK := NumericValue(m.Threshold)
	high, highOK := NumericValue(m.ThresholdMax)

	if !lowOK || !highOK {
		return ErrThresholdNotNumeric
	}

	if high <= low {
		return fmt.Errorf("%w: [%v, %v]", ErrThresholdRange, m.Threshold, m.ThresholdMax)
	}

	return nil
}

// NumericValue coerces JSON-decoded scalar values to float64.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

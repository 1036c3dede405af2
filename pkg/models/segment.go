package models

import "time"

// Segment is a named, reusable filter over the customer population used for
// targeting. All criteria are AND-combined; an absent criterion imposes no
// constraint.
type Segment struct {
	ID          string          `json:"id"`
	Name        string          `json:"name" validate:"required,min=2"`
	Description string          `json:"description"`
	Criteria    SegmentCriteria `json:"criteria"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

// SegmentCriteria holds the declarative filters of a segment. Nil or empty
// fields are vacuously true.
type SegmentCriteria struct {
	LifecycleStages  []string       `json:"lifecycle_stages,omitempty"`
	SentimentBuckets []string       `json:"sentiment_buckets,omitempty"`
	CustomFilters    *CustomFilters `json:"custom_filters,omitempty"`
}

// CustomFilters are the numeric range and category filters of a segment.
// Numeric bounds are inclusive on both ends. Locations is a contains-any
// substring match, not exact.
type CustomFilters struct {
	MinLifetimeValue  *float64 `json:"min_lifetime_value,omitempty"`
	MaxLifetimeValue  *float64 `json:"max_lifetime_value,omitempty"`
	MinAccountBalance *float64 `json:"min_account_balance,omitempty"`
	MaxAccountBalance *float64 `json:"max_account_balance,omitempty"`
	MinAge            *int     `json:"min_age,omitempty"`
	MaxAge            *int     `json:"max_age,omitempty"`
	MinDaysInactive   *int     `json:"min_days_inactive,omitempty"`
	MaxDaysInactive   *int     `json:"max_days_inactive,omitempty"`
	MaxDaysSinceChurn *int     `json:"max_days_since_churn,omitempty"`
	Genders           []string `json:"genders,omitempty"`
	ChurnRisks        []string `json:"churn_risks,omitempty"`
	EngagementLevels  []string `json:"engagement_levels,omitempty"`
	Locations         []string `json:"locations,omitempty"`
}

// IsEmpty reports whether the criteria impose no constraint at all. An empty
// segment matches the entire population.
func (c SegmentCriteria) IsEmpty() bool {
	return len(c.LifecycleStages) == 0 &&
		len(c.SentimentBuckets) == 0 &&
		(c.CustomFilters == nil || c.CustomFilters.IsEmpty())
}

func (f *CustomFilters) IsEmpty() bool {
	return f.MinLifetimeValue == nil && f.MaxLifetimeValue == nil &&
		f.MinAccountBalance == nil && f.MaxAccountBalance == nil &&
		f.MinAge == nil && f.MaxAge == nil &&
		f.MinDaysInactive == nil && f.MaxDaysInactive == nil &&
		f.MaxDaysSinceChurn == nil &&
		len(f.Genders) == 0 && len(f.ChurnRisks) == 0 &&
		len(f.EngagementLevels) == 0 && len(f.Locations) == 0
}

// SegmentMetrics are the aggregates computed over the matching members of a
// segment evaluation.
type SegmentMetrics struct {
	CustomerCount        int     `json:"customer_count"`
	TotalLifetimeValue   float64 `json:"total_lifetime_value"`
	AverageLifetimeValue float64 `json:"average_lifetime_value"`
	ChurnRate            float64 `json:"churn_rate"` // Fraction of matches with churn_risk = high
}

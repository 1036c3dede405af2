// Package models defines the core domain models for customer lifecycle automation.
package models

import "time"

// Customer is a read-only snapshot of the attributes referenced by churn
// rules, segment criteria and journey conditions. It is owned by the external
// customer store; the lifecycle core never mutates it.
type Customer struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	LifecycleStage    string     `json:"lifecycle_stage"`
	SentimentBucket   string     `json:"sentiment_bucket"`
	SentimentScore    float64    `json:"sentiment_score"`
	ChurnRisk         string     `json:"churn_risk"` // low, medium, high
	EngagementLevel   string     `json:"engagement_level"`
	Gender            string     `json:"gender"`
	Location          string     `json:"location"`
	Age               int        `json:"age"`
	DaysInactive      int        `json:"days_inactive"`
	AccountBalance    float64    `json:"account_balance"`
	LifetimeValue     float64    `json:"lifetime_value"`
	ChurnCount        int        `json:"churn_count"`
	ReactivationCount int        `json:"reactivation_count"`
	ChurnDate         *time.Time `json:"churn_date,omitempty"`
}

// ChurnRisk buckets used by segments and metrics.
const (
	ChurnRiskLow    = "low"
	ChurnRiskMedium = "medium"
	ChurnRiskHigh   = "high"
)

// AttributeValue resolves a rule/condition field name against the customer
// snapshot. The second return value is false when the field is unknown or has
// no value; rules referencing such a field must not match (never error).
func (c *Customer) AttributeValue(field string) (any, bool) {
	switch field {
	case "daysInactive":
		return float64(c.DaysInactive), true
	case "accountBalance":
		return c.AccountBalance, true
	case "sentimentScore":
		return c.SentimentScore, true
	case "lifetimeValue":
		return c.LifetimeValue, true
	case "churnRisk":
		return c.ChurnRisk, true
	case "lifecycleStage":
		return c.LifecycleStage, true
	case "sentimentBucket":
		return c.SentimentBucket, true
	case "engagementLevel":
		return c.EngagementLevel, true
	case "age":
		return float64(c.Age), true
	case "gender":
		return c.Gender, true
	case "location":
		return c.Location, true
	case "churnCount":
		return float64(c.ChurnCount), true
	case "reactivationCount":
		return float64(c.ReactivationCount), true
	case "churnDate":
		if c.ChurnDate == nil {
			return nil, false
		}

		return *c.ChurnDate, true
	default:
		return nil, false
	}
}

// AttributeSource is the read-only accessor for customer snapshots, owned by
// the surrounding customer store.
type AttributeSource interface {
	GetAttributes(customerID string) (*Customer, error)
}

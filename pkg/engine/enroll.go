package engine

import (
	"context"
	"fmt"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/segment"
)

// Enroll creates an execution for a customer that satisfies the journey's
// trigger segment and immediately advances it past the trigger node. Each
// (journey, customer) pair gets at most one execution.
func (e *Engine) Enroll(ctx context.Context, journeyID, customerID string) (*models.JourneyExecution, error) {
	journey, err := e.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch journey %s: %w", journeyID, err)
	}

	if journey.Status != models.JourneyStatusActive {
		return nil, ErrJourneyNotActive
	}

	trigger := journey.TriggerNode()
	if trigger == nil {
		return nil, fmt.Errorf("journey %s has no trigger node", journeyID)
	}

	triggerConfig, isTrigger := trigger.Config.(*models.TriggerConfig)
	if !isTrigger {
		return nil, fmt.Errorf("journey %s trigger node carries a %T config", journeyID, trigger.Config)
	}

	enrolled, err := e.persistence.ExecutionRepository().ExistsForCustomer(ctx, journeyID, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	satisfied, err := e.triggerSatisfied(ctx, triggerConfig, customerID)
	if err != nil {
		return nil, err
	}

	if !satisfied {
		return nil, ErrTriggerNotSatisfied
	}

	now := e.now()
	execution := &models.JourneyExecution{
		ID:            e.newID(),
		JourneyID:     journeyID,
		CustomerID:    customerID,
		CurrentNodeID: trigger.ID,
		State:         models.ExecutionStateRunning,
		EnteredAt:     now,
		BranchPicks:   make(map[string]int),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = e.persistence.ExecutionRepository().Save(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	e.publishStarted(ctx, execution, trigger.ID)

	e.logger.InfoContext(ctx, "Enrolled customer in journey",
		"journey_id", journeyID,
		"customer_id", customerID,
		"execution_id", execution.ID,
	)

	// trigger -> next is immediate on creation.
	err = e.run(ctx, journey, execution)
	if err != nil {
		return execution, err
	}

	return execution, nil
}

func (e *Engine) triggerSatisfied(ctx context.Context, config *models.TriggerConfig, customerID string) (bool, error) {
	seg, err := e.persistence.SegmentRepository().GetByID(ctx, config.SegmentID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch trigger segment %s: %w", config.SegmentID, err)
	}

	customer, err := e.attributes.GetAttributes(customerID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch attributes for customer %s: %w", customerID, err)
	}

	return segment.Matches(&seg.Criteria, customer, e.now()), nil
}

package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/dispatch"
	"github.com/pulsecrm/lifecycle/pkg/engine"
	"github.com/pulsecrm/lifecycle/pkg/eventbus"
	"github.com/pulsecrm/lifecycle/pkg/events"
	"github.com/pulsecrm/lifecycle/pkg/lock"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttributes struct {
	customers map[string]*models.Customer
	err       error
}

func (s *stubAttributes) GetAttributes(customerID string) (*models.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}

	customer, found := s.customers[customerID]
	if !found {
		return nil, errors.New("customer not found")
	}

	return customer, nil
}

type recordingDispatcher struct {
	sent []dispatch.Message
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, message dispatch.Message) error {
	if d.err != nil {
		return d.err
	}

	d.sent = append(d.sent, message)

	return nil
}

type capturingPublisher struct {
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.published = append(p.published, event)

	return nil
}

func (p *capturingPublisher) types() []events.EventType {
	result := make([]events.EventType, 0, len(p.published))
	for _, event := range p.published {
		result = append(result, event.GetType())
	}

	return result
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

type fixture struct {
	engine     *engine.Engine
	store      *file.Persistence
	dispatcher *recordingDispatcher
	publisher  *capturingPublisher
	clock      *fakeClock
	locker     *lock.MemoryLocker
	drawValue  int
}

func newFixture(t *testing.T, customer *models.Customer) *fixture {
	t.Helper()

	f := &fixture{
		store:      file.NewPersistence(t.TempDir()),
		dispatcher: &recordingDispatcher{},
		publisher:  &capturingPublisher{},
		clock:      &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		locker:     lock.NewMemoryLocker(),
	}

	registry := dispatch.NewRegistry()
	registry.Register("email", func(_ map[string]string) (dispatch.Dispatcher, error) {
		return f.dispatcher, nil
	})

	f.engine = engine.New(engine.Config{
		Persistence: f.store,
		Attributes:  &stubAttributes{customers: map[string]*models.Customer{customer.ID: customer}},
		Dispatchers: registry,
		Publisher:   f.publisher,
		Locker:      f.locker,
		Draw:        func(_ int) int { return f.drawValue },
		Now:         f.clock.Now,
	})

	err := f.store.SegmentRepository().Save(context.Background(), &models.Segment{
		ID:   "seg-everyone",
		Name: "Everyone",
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) saveJourney(t *testing.T, journey *models.Journey) {
	t.Helper()

	err := f.store.JourneyRepository().Save(context.Background(), journey)
	require.NoError(t, err)
}

func (f *fixture) fetchExecution(t *testing.T, id string) *models.JourneyExecution {
	t.Helper()

	execution, err := f.store.ExecutionRepository().GetByID(context.Background(), id)
	require.NoError(t, err)

	return execution
}

func testCustomer() *models.Customer {
	return &models.Customer{
		ID:            "cust-1",
		Name:          "Ada Lovelace",
		ChurnRisk:     models.ChurnRiskLow,
		DaysInactive:  45,
		LifetimeValue: 1200,
		Location:      "London, UK",
	}
}

func triggerNode(next string) *models.JourneyNode {
	return &models.JourneyNode{
		ID:     "trigger-1",
		Type:   models.NodeTypeTrigger,
		Next:   []string{next},
		Config: &models.TriggerConfig{SegmentID: "seg-everyone"},
	}
}

func endNode(id string) *models.JourneyNode {
	return &models.JourneyNode{
		ID:     id,
		Type:   models.NodeTypeEnd,
		Config: &models.EndConfig{},
	}
}

func linearJourney(action *models.ActionConfig) *models.Journey {
	return &models.Journey{
		ID:     "journey-1",
		Name:   "Winback",
		Status: models.JourneyStatusActive,
		Nodes: []*models.JourneyNode{
			triggerNode("action-1"),
			{
				ID:     "action-1",
				Type:   models.NodeTypeAction,
				Next:   []string{"end-1"},
				Config: action,
			},
			endNode("end-1"),
		},
	}
}

func TestEnrollRunsLinearJourneyToCompletion(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{
		Channel: "email",
		Subject: "We miss you, {{customer.name}}",
		Content: "Come back to {{customer.location}}",
	}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateCompleted, stored.State)
	assert.Equal(t, "end-1", stored.CurrentNodeID)
	require.NotNil(t, stored.FinishedAt)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "We miss you, Ada Lovelace", f.dispatcher.sent[0].Subject)
	assert.Equal(t, "Come back to London, UK", f.dispatcher.sent[0].Content)

	assert.Contains(t, f.publisher.types(), events.ExecutionStartedEvent)
	assert.Contains(t, f.publisher.types(), events.MessageDispatchedEvent)
	assert.Contains(t, f.publisher.types(), events.ExecutionCompletedEvent)
}

func TestEnrollRejectsInactiveJourney(t *testing.T) {
	f := newFixture(t, testCustomer())

	journey := linearJourney(&models.ActionConfig{Channel: "email", Content: "hi"})
	journey.Status = models.JourneyStatusDraft
	f.saveJourney(t, journey)

	_, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	assert.ErrorIs(t, err, engine.ErrJourneyNotActive)
}

func TestEnrollRejectsDuplicateEnrollment(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{Channel: "email", Content: "hi"}))

	_, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	_, err = f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	assert.ErrorIs(t, err, engine.ErrAlreadyEnrolled)
}

func TestEnrollRejectsCustomerOutsideTriggerSegment(t *testing.T) {
	f := newFixture(t, testCustomer())

	err := f.store.SegmentRepository().Save(context.Background(), &models.Segment{
		ID:   "seg-high-risk",
		Name: "High churn risk",
		Criteria: models.SegmentCriteria{
			CustomFilters: &models.CustomFilters{
				ChurnRisks: []string{models.ChurnRiskHigh},
			},
		},
	})
	require.NoError(t, err)

	journey := linearJourney(&models.ActionConfig{Channel: "email", Content: "hi"})
	journey.Nodes[0].Config = &models.TriggerConfig{SegmentID: "seg-high-risk"}
	f.saveJourney(t, journey)

	_, err = f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	assert.ErrorIs(t, err, engine.ErrTriggerNotSatisfied)
}

func conditionJourney(condition *models.ConditionConfig) *models.Journey {
	return &models.Journey{
		ID:     "journey-1",
		Name:   "Branching",
		Status: models.JourneyStatusActive,
		Nodes: []*models.JourneyNode{
			triggerNode("cond-1"),
			{
				ID:     "cond-1",
				Type:   models.NodeTypeCondition,
				Next:   []string{"end-true", "end-false"},
				Config: condition,
			},
			endNode("end-true"),
			endNode("end-false"),
		},
	}
}

func TestConditionRouting(t *testing.T) {
	tests := []struct {
		name      string
		condition *models.ConditionConfig
		wantNode  string
	}{
		{
			name:      "comparison holds routes to first target",
			condition: &models.ConditionConfig{Field: "daysInactive", Operator: models.OperatorGTE, Value: 30.0},
			wantNode:  "end-true",
		},
		{
			name:      "comparison fails routes to second target",
			condition: &models.ConditionConfig{Field: "daysInactive", Operator: models.OperatorGTE, Value: 90.0},
			wantNode:  "end-false",
		},
		{
			name:      "missing attribute never matches",
			condition: &models.ConditionConfig{Field: "loyaltyTier", Operator: models.OperatorEQ, Value: "gold"},
			wantNode:  "end-false",
		},
		{
			name:      "between is inclusive on both bounds",
			condition: &models.ConditionConfig{Field: "daysInactive", Operator: models.OperatorBetween, Value: 45.0, ValueMax: 60.0},
			wantNode:  "end-true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testCustomer())
			f.saveJourney(t, conditionJourney(tt.condition))

			execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
			require.NoError(t, err)

			stored := f.fetchExecution(t, execution.ID)
			assert.Equal(t, models.ExecutionStateCompleted, stored.State)
			assert.Equal(t, tt.wantNode, stored.CurrentNodeID)
		})
	}
}

func waitJourney(duration string) *models.Journey {
	return &models.Journey{
		ID:     "journey-1",
		Name:   "Patience",
		Status: models.JourneyStatusActive,
		Nodes: []*models.JourneyNode{
			triggerNode("wait-1"),
			{
				ID:     "wait-1",
				Type:   models.NodeTypeWait,
				Next:   []string{"end-1"},
				Config: &models.WaitConfig{Duration: duration},
			},
			endNode("end-1"),
		},
	}
}

func TestWaitSuspendsAndResumeContinues(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, waitJourney("72h"))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateWaiting, stored.State)
	require.NotNil(t, stored.WaitUntil)
	assert.Equal(t, f.clock.Now().Add(72*time.Hour), *stored.WaitUntil)

	err = f.engine.Resume(context.Background(), execution.ID)
	assert.ErrorIs(t, err, engine.ErrWaitNotElapsed)

	f.clock.Advance(73 * time.Hour)

	err = f.engine.Resume(context.Background(), execution.ID)
	require.NoError(t, err)

	stored = f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateCompleted, stored.State)
	assert.Nil(t, stored.WaitUntil)
}

func TestResumeRequiresWaitingState(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{Channel: "email", Content: "hi"}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	err = f.engine.Resume(context.Background(), execution.ID)
	assert.ErrorIs(t, err, engine.ErrExecutionTerminal)
}

func splitJourney() *models.Journey {
	return &models.Journey{
		ID:     "journey-1",
		Name:   "Experiment",
		Status: models.JourneyStatusActive,
		Nodes: []*models.JourneyNode{
			triggerNode("split-1"),
			{
				ID:   "split-1",
				Type: models.NodeTypeSplit,
				Next: []string{"end-a", "end-b"},
				Config: &models.SplitConfig{Branches: []models.SplitBranch{
					{Name: "control", Weight: 50},
					{Name: "variant", Weight: 50},
				}},
			},
			endNode("end-a"),
			endNode("end-b"),
		},
	}
}

func TestSplitRoutesByWeightedDraw(t *testing.T) {
	tests := []struct {
		name      string
		draw      int
		wantNode  string
		wantPick  int
	}{
		{name: "draw in first branch weight", draw: 10, wantNode: "end-a", wantPick: 0},
		{name: "draw past first branch weight", draw: 60, wantNode: "end-b", wantPick: 1},
		{name: "draw on the boundary", draw: 50, wantNode: "end-b", wantPick: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testCustomer())
			f.drawValue = tt.draw
			f.saveJourney(t, splitJourney())

			execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
			require.NoError(t, err)

			stored := f.fetchExecution(t, execution.ID)
			assert.Equal(t, models.ExecutionStateCompleted, stored.State)
			assert.Equal(t, tt.wantNode, stored.CurrentNodeID)
			assert.Equal(t, tt.wantPick, stored.BranchPicks["split-1"])
		})
	}
}

func TestApprovalGateBlocksUntilApproved(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{
		Channel:          "email",
		Content:          "Special offer for {{customer.name}}",
		RequiresApproval: true,
	}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStatePendingApproval, stored.State)
	assert.Empty(t, f.dispatcher.sent)
	assert.Contains(t, f.publisher.types(), events.ApprovalRequestedEvent)

	err = f.engine.Approve(context.Background(), execution.ID)
	require.NoError(t, err)

	stored = f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateCompleted, stored.State)
	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "Special offer for Ada Lovelace", f.dispatcher.sent[0].Content)
	assert.Contains(t, f.publisher.types(), events.ApprovalResolvedEvent)
}

func TestApprovalRejectFailsWithoutDispatch(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{
		Channel:          "email",
		Content:          "offer",
		RequiresApproval: true,
	}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	err = f.engine.Reject(context.Background(), execution.ID, "off-brand copy")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateFailed, stored.State)
	assert.Equal(t, models.FailureTypeApprovalRejected, stored.FailureType)
	assert.Contains(t, stored.FailureReason, "off-brand copy")
	assert.Empty(t, f.dispatcher.sent)
}

func TestApproveRequiresPendingState(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, waitJourney("1h"))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	err = f.engine.Approve(context.Background(), execution.ID)
	assert.ErrorIs(t, err, engine.ErrNotPendingApproval)
}

func TestDispatchFailureFailsExecution(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.dispatcher.err = errors.New("smtp unreachable")
	f.saveJourney(t, linearJourney(&models.ActionConfig{Channel: "email", Content: "hi"}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateFailed, stored.State)
	assert.Equal(t, models.FailureTypeDispatch, stored.FailureType)
	assert.Contains(t, stored.FailureReason, "smtp unreachable")
	assert.Contains(t, f.publisher.types(), events.MessageDispatchFailedEvent)
	assert.Contains(t, f.publisher.types(), events.ExecutionFailedEvent)
}

func TestUnregisteredChannelFailsAsConfiguration(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{Channel: "carrier-pigeon", Content: "hi"}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateFailed, stored.State)
	assert.Equal(t, models.FailureTypeConfiguration, stored.FailureType)
}

func TestCancelWaitingExecution(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, waitJourney("72h"))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	err = f.engine.Cancel(context.Background(), execution.ID, "campaign retired")
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateCancelled, stored.State)
	assert.Nil(t, stored.WaitUntil)
	require.NotNil(t, stored.FinishedAt)

	err = f.engine.Cancel(context.Background(), execution.ID, "again")
	assert.ErrorIs(t, err, engine.ErrExecutionTerminal)
}

func TestDeadEndNodesFailAsConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*models.JourneyNode
	}{
		{
			"trigger without outgoing edge",
			[]*models.JourneyNode{
				{ID: "trigger-1", Type: models.NodeTypeTrigger, Config: &models.TriggerConfig{SegmentID: "seg-everyone"}},
			},
		},
		{
			"action without outgoing edge",
			[]*models.JourneyNode{
				triggerNode("action-1"),
				{ID: "action-1", Type: models.NodeTypeAction, Config: &models.ActionConfig{Channel: "email", Content: "hi"}},
			},
		},
		{
			"condition with a single outgoing edge",
			[]*models.JourneyNode{
				triggerNode("cond-1"),
				{
					ID:     "cond-1",
					Type:   models.NodeTypeCondition,
					Next:   []string{"end-1"},
					Config: &models.ConditionConfig{Field: "daysInactive", Operator: models.OperatorGTE, Value: 30.0},
				},
				endNode("end-1"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testCustomer())
			f.saveJourney(t, &models.Journey{
				ID:     "journey-1",
				Name:   "Malformed",
				Status: models.JourneyStatusActive,
				Nodes:  tt.nodes,
			})

			execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
			require.NoError(t, err)

			stored := f.fetchExecution(t, execution.ID)
			assert.Equal(t, models.ExecutionStateFailed, stored.State)
			assert.Equal(t, models.FailureTypeConfiguration, stored.FailureType)
			assert.Contains(t, stored.FailureReason, "outgoing edge")
		})
	}
}

func TestResumeFailsWaitNodeWithoutOutgoingEdge(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, &models.Journey{
		ID:     "journey-1",
		Name:   "Malformed",
		Status: models.JourneyStatusActive,
		Nodes: []*models.JourneyNode{
			triggerNode("wait-1"),
			{ID: "wait-1", Type: models.NodeTypeWait, Config: &models.WaitConfig{Duration: "1h"}},
		},
	})

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	err = f.engine.Resume(context.Background(), execution.ID)
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateFailed, stored.State)
	assert.Equal(t, models.FailureTypeConfiguration, stored.FailureType)
}

func TestApproveFailsActionNodeWithoutOutgoingEdge(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, linearJourney(&models.ActionConfig{
		Channel:          "email",
		Content:          "offer",
		RequiresApproval: true,
	}))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	// The journey loses the action's edge while the approval is pending.
	broken := linearJourney(&models.ActionConfig{
		Channel:          "email",
		Content:          "offer",
		RequiresApproval: true,
	})
	broken.Nodes[1].Next = nil
	f.saveJourney(t, broken)

	err = f.engine.Approve(context.Background(), execution.ID)
	require.NoError(t, err)

	stored := f.fetchExecution(t, execution.ID)
	assert.Equal(t, models.ExecutionStateFailed, stored.State)
	assert.Equal(t, models.FailureTypeConfiguration, stored.FailureType)
	assert.Empty(t, f.dispatcher.sent)
}

func TestAdvanceRefusesHeldLock(t *testing.T) {
	f := newFixture(t, testCustomer())
	f.saveJourney(t, waitJourney("72h"))

	execution, err := f.engine.Enroll(context.Background(), "journey-1", "cust-1")
	require.NoError(t, err)

	release, err := f.locker.Acquire(context.Background(), execution.ID, time.Minute)
	require.NoError(t, err)

	defer func() { _ = release(context.Background()) }()

	err = f.engine.Advance(context.Background(), execution.ID)
	assert.ErrorIs(t, err, lock.ErrAlreadyLocked)
}

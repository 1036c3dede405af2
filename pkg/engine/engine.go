// Package engine advances journey executions through their graphs: condition
// branching, weighted split routing, wait suspension and approval gating.
package engine

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/pulsecrm/lifecycle/pkg/dispatch"
	"github.com/pulsecrm/lifecycle/pkg/eventbus"
	"github.com/pulsecrm/lifecycle/pkg/lock"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// State machine errors surfaced to callers.
var (
	ErrJourneyNotActive    = errors.New("journey is not active")
	ErrAlreadyEnrolled     = errors.New("customer already has an execution for this journey")
	ErrTriggerNotSatisfied = errors.New("customer does not satisfy the journey trigger")
	ErrExecutionTerminal   = errors.New("execution is in a terminal state")
	ErrNotRunning          = errors.New("execution is not running")
	ErrNotWaiting          = errors.New("execution is not waiting")
	ErrNotPendingApproval  = errors.New("execution is not pending approval")
	ErrWaitNotElapsed      = errors.New("wait duration has not elapsed")
)

const (
	defaultLockTTL = 30 * time.Second

	// Caps a single advancement pass so a mis-authored cycle without a wait
	// node cannot spin forever.
	maxStepsPerAdvance = 1000
)

// ApprovalRequester notifies the external approval authority that a gated
// action is blocked. Decisions come back through Approve and Reject.
type ApprovalRequester interface {
	RequestApproval(executionID, preview string) error
}

// Config wires the engine's collaborators. Persistence, Attributes,
// Dispatchers, Publisher and Locker are required; the rest have defaults.
type Config struct {
	Persistence persistence.Persistence
	Attributes  models.AttributeSource
	Dispatchers *dispatch.Registry
	Publisher   eventbus.EventPublisher
	Locker      lock.Locker
	Approvals   ApprovalRequester // Optional; events are published regardless
	Logger      *slog.Logger
	Tracer      trace.Tracer

	// NewID generates execution and event ids; defaults to UUIDv4. Injected
	// so callers own id generation.
	NewID func() string

	// Draw returns a uniform integer in [0, n) for split routing; defaults to
	// math/rand/v2. Injected for deterministic tests.
	Draw func(n int) int

	// Now is the clock; defaults to time.Now.
	Now func() time.Time

	LockTTL time.Duration
}

type Engine struct {
	persistence persistence.Persistence
	attributes  models.AttributeSource
	dispatchers *dispatch.Registry
	publisher   eventbus.EventPublisher
	locker      lock.Locker
	approvals   ApprovalRequester
	logger      *slog.Logger
	tracer      trace.Tracer
	newID       func() string
	draw        func(n int) int
	now         func() time.Time
	lockTTL     time.Duration
}

func New(config Config) *Engine {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.Tracer == nil {
		config.Tracer = otel.Tracer("lifecycle.engine")
	}

	if config.NewID == nil {
		config.NewID = func() string { return uuid.New().String() }
	}

	if config.Draw == nil {
		config.Draw = rand.IntN
	}

	if config.Now == nil {
		config.Now = time.Now
	}

	if config.LockTTL <= 0 {
		config.LockTTL = defaultLockTTL
	}

	return &Engine{
		persistence: config.Persistence,
		attributes:  config.Attributes,
		dispatchers: config.Dispatchers,
		publisher:   config.Publisher,
		locker:      config.Locker,
		approvals:   config.Approvals,
		logger:      config.Logger.With("module", "engine"),
		tracer:      config.Tracer,
		newID:       config.NewID,
		draw:        config.Draw,
		now:         config.Now,
		lockTTL:     config.LockTTL,
	}
}

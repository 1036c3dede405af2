package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pulsecrm/lifecycle/pkg/journey"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// ErrJourneyNotFound is returned when a journey is not found.
var ErrJourneyNotFound = persistence.ErrJourneyNotFound

// Journey manages journey definitions and their activation lifecycle.
// Activation is gated on structural validation: invalid graphs never enroll
// customers.
type Journey struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

// NewJourney creates a new journey service.
func NewJourney(persistence persistence.Persistence, validator *validator.Validate) *Journey {
	return &Journey{
		persistence: persistence,
		validator:   validator,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Journey) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all journey definitions.
func (s *Journey) List(ctx context.Context) ([]*models.Journey, error) {
	journeys, err := s.persistence.JourneyRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}

	return journeys, nil
}

// FetchByID retrieves a journey by its ID.
func (s *Journey) FetchByID(ctx context.Context, id string) (*models.Journey, error) {
	return s.persistence.JourneyRepository().GetByID(ctx, id)
}

// Create adds a new journey in draft status.
func (s *Journey) Create(ctx context.Context, j *models.Journey) (*models.Journey, error) {
	if j == nil {
		return nil, ErrJourneyNil
	}

	if j.Name == "" {
		return nil, ErrJourneyNameRequired
	}

	now := time.Now().UTC()
	j.ID = uuid.New().String()
	j.Status = models.JourneyStatusDraft
	j.CreatedAt = now
	j.UpdatedAt = now

	if err := s.validator.Struct(j); err != nil {
		return nil, NewValidationError("Create", "INVALID_JOURNEY", err.Error(), ErrInvalidRequest)
	}

	err := s.persistence.JourneyRepository().Save(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("failed to create journey: %w", err)
	}

	return j, nil
}

// Update modifies an existing journey definition. Only draft journeys are
// editable; pause or retire an active journey first.
func (s *Journey) Update(ctx context.Context, journeyID string, j *models.Journey) (*models.Journey, error) {
	if j == nil {
		return nil, ErrJourneyNil
	}

	existing, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	if existing.Status != models.JourneyStatusDraft {
		return nil, ErrCannotModifyActive
	}

	j.ID = journeyID
	j.Status = existing.Status
	j.CreatedAt = existing.CreatedAt
	j.UpdatedAt = time.Now().UTC()

	if err := s.validator.Struct(j); err != nil {
		return nil, NewValidationError("Update", "INVALID_JOURNEY", err.Error(), ErrInvalidRequest)
	}

	err = s.persistence.JourneyRepository().Save(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("failed to update journey: %w", err)
	}

	return j, nil
}

// Delete removes a journey by its ID. Active journeys must be paused first.
func (s *Journey) Delete(ctx context.Context, journeyID string) error {
	existing, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return err
	}

	if existing.Status == models.JourneyStatusActive {
		return ErrCannotDeleteActive
	}

	err = s.persistence.JourneyRepository().Delete(ctx, journeyID)
	if err != nil {
		return fmt.Errorf("failed to delete journey: %w", err)
	}

	return nil
}

// Validate runs the structural validation pass without changing any state.
// An empty list means the journey may be activated.
func (s *Journey) Validate(ctx context.Context, journeyID string) ([]journey.ValidationError, error) {
	j, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	return journey.Validate(j), nil
}

// Activate validates the journey and moves it to active status. A journey
// with any structural issue is rejected with the full issue list.
func (s *Journey) Activate(ctx context.Context, journeyID string) (*models.Journey, error) {
	j, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	if j.Status != models.JourneyStatusDraft && j.Status != models.JourneyStatusPaused {
		return nil, ErrJourneyNotActivable
	}

	issues := journey.Validate(j)
	if len(issues) > 0 {
		return nil, &JourneyValidationError{Issues: issues}
	}

	now := time.Now().UTC()
	j.Status = models.JourneyStatusActive
	j.ActivatedAt = &now
	j.UpdatedAt = now

	err = s.persistence.JourneyRepository().Save(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("failed to activate journey: %w", err)
	}

	return j, nil
}

// Pause stops new enrollments. Existing executions keep advancing.
func (s *Journey) Pause(ctx context.Context, journeyID string) (*models.Journey, error) {
	j, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		return nil, err
	}

	if j.Status != models.JourneyStatusActive {
		return nil, ErrJourneyNotPausable
	}

	j.Status = models.JourneyStatusPaused
	j.UpdatedAt = time.Now().UTC()

	err = s.persistence.JourneyRepository().Save(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("failed to pause journey: %w", err)
	}

	return j, nil
}

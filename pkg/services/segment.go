package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"github.com/pulsecrm/lifecycle/pkg/segment"
)

// ErrSegmentNotFound is returned when a segment is not found.
var ErrSegmentNotFound = persistence.ErrSegmentNotFound

// CustomerPopulation lists the customer snapshots a segment evaluation runs
// over. The external customer store owns it.
type CustomerPopulation interface {
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
}

// Segment manages segment definitions and evaluates them against the
// customer population.
type Segment struct {
	persistence persistence.Persistence
	population  CustomerPopulation
	validator   *validator.Validate
}

// NewSegment creates a new segment service.
func NewSegment(persistence persistence.Persistence, population CustomerPopulation, validator *validator.Validate) *Segment {
	return &Segment{
		persistence: persistence,
		population:  population,
		validator:   validator,
	}
}

// List retrieves all segment definitions.
func (s *Segment) List(ctx context.Context) ([]*models.Segment, error) {
	segments, err := s.persistence.SegmentRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	return segments, nil
}

// FetchByID retrieves a segment by its ID.
func (s *Segment) FetchByID(ctx context.Context, id string) (*models.Segment, error) {
	return s.persistence.SegmentRepository().GetByID(ctx, id)
}

// Create adds a new segment definition.
func (s *Segment) Create(ctx context.Context, seg *models.Segment) (*models.Segment, error) {
	if seg == nil {
		return nil, ErrSegmentNil
	}

	if seg.Name == "" {
		return nil, ErrSegmentNameRequired
	}

	now := time.Now().UTC()
	seg.ID = uuid.New().String()
	seg.CreatedAt = now
	seg.UpdatedAt = now

	if err := s.validator.Struct(seg); err != nil {
		return nil, NewValidationError("Create", "INVALID_SEGMENT", err.Error(), ErrInvalidRequest)
	}

	err := s.persistence.SegmentRepository().Save(ctx, seg)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}

	return seg, nil
}

// Update modifies an existing segment. Journeys triggering off the segment
// pick up the new criteria on their next enrollment check.
func (s *Segment) Update(ctx context.Context, segmentID string, seg *models.Segment) (*models.Segment, error) {
	if seg == nil {
		return nil, ErrSegmentNil
	}

	existing, err := s.persistence.SegmentRepository().GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	seg.ID = segmentID
	seg.CreatedAt = existing.CreatedAt
	seg.UpdatedAt = time.Now().UTC()

	if err := s.validator.Struct(seg); err != nil {
		return nil, NewValidationError("Update", "INVALID_SEGMENT", err.Error(), ErrInvalidRequest)
	}

	err = s.persistence.SegmentRepository().Save(ctx, seg)
	if err != nil {
		return nil, fmt.Errorf("failed to update segment: %w", err)
	}

	return seg, nil
}

// Delete removes a segment by its ID.
func (s *Segment) Delete(ctx context.Context, segmentID string) error {
	_, err := s.persistence.SegmentRepository().GetByID(ctx, segmentID)
	if err != nil {
		return err
	}

	err = s.persistence.SegmentRepository().Delete(ctx, segmentID)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}

	return nil
}

// Evaluate runs a stored segment against the current customer population and
// returns the matching members with aggregate metrics.
func (s *Segment) Evaluate(ctx context.Context, segmentID string) (*segment.Result, error) {
	seg, err := s.persistence.SegmentRepository().GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	customers, err := s.population.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return segment.Evaluate(seg, customers, time.Now().UTC()), nil
}

// Preview evaluates ad-hoc criteria without persisting a segment, for the
// authoring UI's live match count.
func (s *Segment) Preview(ctx context.Context, criteria models.SegmentCriteria) (*segment.Result, error) {
	customers, err := s.population.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return segment.Evaluate(&models.Segment{Criteria: criteria}, customers, time.Now().UTC()), nil
}

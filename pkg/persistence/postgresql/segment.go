package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// SegmentRepository handles segment database operations. Criteria are stored
// as a JSONB document.
type SegmentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *SegmentRepository) GetAll(ctx context.Context) ([]*models.Segment, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , criteria
		  , created_at
		  , updated_at
		  , deleted_at
		FROM segments
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	segments := make([]*models.Segment, 0)

	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}

		segments = append(segments, segment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating segments: %w", err)
	}

	return segments, nil
}

func (r *SegmentRepository) GetByID(ctx context.Context, id string) (*models.Segment, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , criteria
		  , created_at
		  , updated_at
		  , deleted_at
		FROM segments
		WHERE id = $1 AND deleted_at IS NULL
	`

	segment, err := scanSegment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSegmentNotFound
		}

		return nil, fmt.Errorf("failed to get segment %s: %w", id, err)
	}

	return segment, nil
}

func (r *SegmentRepository) Save(ctx context.Context, segment *models.Segment) error {
	criteria, err := json.Marshal(segment.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode segment criteria: %w", err)
	}

	query := `
		INSERT INTO segments (id, name, description, criteria, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , criteria = EXCLUDED.criteria
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		segment.ID,
		segment.Name,
		segment.Description,
		criteria,
		segment.CreatedAt,
		segment.UpdatedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "Save", Entity: "segment", EntityID: segment.ID, Err: err}
	}

	return nil
}

func (r *SegmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE segments SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return &persistence.StoreError{Op: "Delete", Entity: "segment", EntityID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrSegmentNotFound
	}

	return nil
}

func scanSegment(row rowScanner) (*models.Segment, error) {
	var (
		segment  models.Segment
		criteria []byte
	)

	err := row.Scan(
		&segment.ID,
		&segment.Name,
		&segment.Description,
		&criteria,
		&segment.CreatedAt,
		&segment.UpdatedAt,
		&segment.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(criteria, &segment.Criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to decode segment criteria: %w", err)
	}

	return &segment, nil
}

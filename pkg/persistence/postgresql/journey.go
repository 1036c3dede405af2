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

// JourneyRepository handles journey database operations. The node graph is
// stored as a JSONB document; the typed node configs round-trip through the
// JourneyNode custom (un)marshalling.
type JourneyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *JourneyRepository) GetAll(ctx context.Context) ([]*models.Journey, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , status
		  , nodes
		  , created_at
		  , updated_at
		  , activated_at
		  , deleted_at
		FROM journeys
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query journeys: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	journeys := make([]*models.Journey, 0)

	for rows.Next() {
		journey, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journey: %w", err)
		}

		journeys = append(journeys, journey)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating journeys: %w", err)
	}

	return journeys, nil
}

func (r *JourneyRepository) GetByID(ctx context.Context, id string) (*models.Journey, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , status
		  , nodes
		  , created_at
		  , updated_at
		  , activated_at
		  , deleted_at
		FROM journeys
		WHERE id = $1 AND deleted_at IS NULL
	`

	journey, err := scanJourney(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrJourneyNotFound
		}

		return nil, fmt.Errorf("failed to get journey %s: %w", id, err)
	}

	return journey, nil
}

func (r *JourneyRepository) Save(ctx context.Context, journey *models.Journey) error {
	nodes, err := json.Marshal(journey.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode journey nodes: %w", err)
	}

	query := `
		INSERT INTO journeys (id, name, description, status, nodes, created_at, updated_at, activated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , status = EXCLUDED.status
		  , nodes = EXCLUDED.nodes
		  , updated_at = EXCLUDED.updated_at
		  , activated_at = EXCLUDED.activated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		journey.ID,
		journey.Name,
		journey.Description,
		journey.Status,
		nodes,
		journey.CreatedAt,
		journey.UpdatedAt,
		journey.ActivatedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "Save", Entity: "journey", EntityID: journey.ID, Err: err}
	}

	return nil
}

// Delete soft deletes by setting deleted_at.
func (r *JourneyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE journeys SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		time.Now(), id,
	)
	if err != nil {
		return &persistence.StoreError{Op: "Delete", Entity: "journey", EntityID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrJourneyNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJourney(row rowScanner) (*models.Journey, error) {
	var (
		journey models.Journey
		nodes   []byte
	)

	err := row.Scan(
		&journey.ID,
		&journey.Name,
		&journey.Description,
		&journey.Status,
		&nodes,
		&journey.CreatedAt,
		&journey.UpdatedAt,
		&journey.ActivatedAt,
		&journey.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(nodes, &journey.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode journey nodes: %w", err)
	}

	return &journey, nil
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pulsecrm/lifecycle/pkg/models"
	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// ChurnStageRepository handles churn stage database operations.
type ChurnStageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ChurnStageRepository) GetAll(ctx context.Context) ([]*models.ChurnStage, error) {
	query := "SELECT id, name, slug, severity, color FROM churn_stages ORDER BY severity"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query churn stages: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	stages := make([]*models.ChurnStage, 0)

	for rows.Next() {
		var stage models.ChurnStage

		err := rows.Scan(&stage.ID, &stage.Name, &stage.Slug, &stage.Severity, &stage.Color)
		if err != nil {
			return nil, fmt.Errorf("failed to scan churn stage: %w", err)
		}

		stages = append(stages, &stage)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating churn stages: %w", err)
	}

	return stages, nil
}

func (r *ChurnStageRepository) GetByID(ctx context.Context, id string) (*models.ChurnStage, error) {
	var stage models.ChurnStage

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, severity, color FROM churn_stages WHERE id = $1", id,
	).Scan(&stage.ID, &stage.Name, &stage.Slug, &stage.Severity, &stage.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrStageNotFound
		}

		return nil, fmt.Errorf("failed to get churn stage %s: %w", id, err)
	}

	return &stage, nil
}

func (r *ChurnStageRepository) Save(ctx context.Context, stage *models.ChurnStage) error {
	query := `
		INSERT INTO churn_stages (id, name, slug, severity, color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , slug = EXCLUDED.slug
		  , severity = EXCLUDED.severity
		  , color = EXCLUDED.color
	`

	_, err := r.db.ExecContext(ctx, query, stage.ID, stage.Name, stage.Slug, stage.Severity, stage.Color)
	if err != nil {
		return &persistence.StoreError{Op: "Save", Entity: "churn stage", EntityID: stage.ID, Err: err}
	}

	return nil
}

func (r *ChurnStageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM churn_stages WHERE id = $1", id)
	if err != nil {
		return &persistence.StoreError{Op: "Delete", Entity: "churn stage", EntityID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrStageNotFound
	}

	return nil
}

// ChurnMetricRepository handles churn metric database operations. Thresholds
// are stored as JSONB so numeric and string rules share one column.
type ChurnMetricRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const metricColumns = "id, stage_id, field, operator, threshold, threshold_max, weight, active"

func (r *ChurnMetricRepository) GetAll(ctx context.Context) ([]*models.ChurnMetric, error) {
	query := "SELECT " + metricColumns + " FROM churn_metrics ORDER BY field"

	return r.queryMetrics(ctx, query)
}

func (r *ChurnMetricRepository) ListByStage(ctx context.Context, stageID string) ([]*models.ChurnMetric, error) {
	query := "SELECT " + metricColumns + " FROM churn_metrics WHERE stage_id = $1 ORDER BY field"

	return r.queryMetrics(ctx, query, stageID)
}

func (r *ChurnMetricRepository) GetByID(ctx context.Context, id string) (*models.ChurnMetric, error) {
	metric, err := scanMetric(r.db.QueryRowContext(ctx,
		"SELECT "+metricColumns+" FROM churn_metrics WHERE id = $1", id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrMetricNotFound
		}

		return nil, fmt.Errorf("failed to get churn metric %s: %w", id, err)
	}

	return metric, nil
}

func (r *ChurnMetricRepository) Save(ctx context.Context, metric *models.ChurnMetric) error {
	threshold, err := json.Marshal(metric.Threshold)
	if err != nil {
		return fmt.Errorf("failed to encode threshold: %w", err)
	}

	thresholdMax, err := json.Marshal(metric.ThresholdMax)
	if err != nil {
		return fmt.Errorf("failed to encode threshold_max: %w", err)
	}

	query := `
		INSERT INTO churn_metrics (id, stage_id, field, operator, threshold, threshold_max, weight, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			stage_id = EXCLUDED.stage_id
		  , field = EXCLUDED.field
		  , operator = EXCLUDED.operator
		  , threshold = EXCLUDED.threshold
		  , threshold_max = EXCLUDED.threshold_max
		  , weight = EXCLUDED.weight
		  , active = EXCLUDED.active
	`

	_, err = r.db.ExecContext(ctx, query,
		metric.ID,
		metric.StageID,
		metric.Field,
		metric.Operator,
		threshold,
		thresholdMax,
		metric.Weight,
		metric.Active,
	)
	if err != nil {
		return &persistence.StoreError{Op: "Save", Entity: "churn metric", EntityID: metric.ID, Err: err}
	}

	return nil
}

func (r *ChurnMetricRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM churn_metrics WHERE id = $1", id)
	if err != nil {
		return &persistence.StoreError{Op: "Delete", Entity: "churn metric", EntityID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrMetricNotFound
	}

	return nil
}

func (r *ChurnMetricRepository) queryMetrics(ctx context.Context, query string, args ...any) ([]*models.ChurnMetric, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query churn metrics: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	metrics := make([]*models.ChurnMetric, 0)

	for rows.Next() {
		metric, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan churn metric: %w", err)
		}

		metrics = append(metrics, metric)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating churn metrics: %w", err)
	}

	return metrics, nil
}

func scanMetric(row rowScanner) (*models.ChurnMetric, error) {
	var (
		metric       models.ChurnMetric
		threshold    []byte
		thresholdMax []byte
	)

	err := row.Scan(
		&metric.ID,
		&metric.StageID,
		&metric.Field,
		&metric.Operator,
		&threshold,
		&thresholdMax,
		&metric.Weight,
		&metric.Active,
	)
	if err != nil {
		return nil, err
	}

	if len(threshold) > 0 {
		err = json.Unmarshal(threshold, &metric.Threshold)
		if err != nil {
			return nil, fmt.Errorf("failed to decode threshold: %w", err)
		}
	}

	if len(thresholdMax) > 0 {
		err = json.Unmarshal(thresholdMax, &metric.ThresholdMax)
		if err != nil {
			return nil, fmt.Errorf("failed to decode threshold_max: %w", err)
		}
	}

	return &metric, nil
}

// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"github.com/pulsecrm/lifecycle/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	journeys   *JourneyRepository
	executions *ExecutionRepository
	segments   *SegmentRepository
	stages     *ChurnStageRepository
	metrics    *ChurnMetricRepository
}

// NewPersistence connects, migrates and returns a PostgreSQL persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		journeys:   &JourneyRepository{db: database, logger: logger},
		executions: &ExecutionRepository{db: database, logger: logger},
		segments:   &SegmentRepository{db: database, logger: logger},
		stages:     &ChurnStageRepository{db: database, logger: logger},
		metrics:    &ChurnMetricRepository{db: database, logger: logger},
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) JourneyRepository() persistence.JourneyRepository {
	return p.journeys
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) SegmentRepository() persistence.SegmentRepository {
	return p.segments
}

func (p *Persistence) ChurnStageRepository() persistence.ChurnStageRepository {
	return p.stages
}

func (p *Persistence) ChurnMetricRepository() persistence.ChurnMetricRepository {
	return p.metrics
}

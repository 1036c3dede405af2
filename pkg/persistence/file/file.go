// Package file provides a file-based persistence implementation, used for
// local development and as the storage double in unit tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/pulsecrm/lifecycle/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of JSON documents
// under a root directory.
type Persistence struct {
	root        string
	journeys    *JourneyRepository
	executions  *ExecutionRepository
	segments    *SegmentRepository
	stages      *ChurnStageRepository
	metrics     *ChurnMetricRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts plain paths and file:// URLs.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		journeys:   &JourneyRepository{store: newDocumentStore(cleanRoot, "journeys")},
		executions: &ExecutionRepository{store: newDocumentStore(cleanRoot, "executions")},
		segments:   &SegmentRepository{store: newDocumentStore(cleanRoot, "segments")},
		stages:     &ChurnStageRepository{store: newDocumentStore(cleanRoot, "churn_stages")},
		metrics:    &ChurnMetricRepository{store: newDocumentStore(cleanRoot, "churn_metrics")},
	}
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
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

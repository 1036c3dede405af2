// Package cmd holds the shared wiring helpers of the lifecycle binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pulsecrm/lifecycle/pkg/persistence"
	"github.com/pulsecrm/lifecycle/pkg/persistence/file"
	"github.com/pulsecrm/lifecycle/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	scheme, _, _ := strings.Cut(databaseURL, "://")

	switch scheme {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

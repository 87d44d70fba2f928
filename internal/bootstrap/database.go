package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/config"
	"github.com/jonesrussell/north-cloud/draft-review/internal/database"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/service"
)

// SetupRepository returns the configured draft store and a func that releases it.
// The memory driver starts with a demo queue.
func SetupRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (service.Repository, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		repo := database.NewMemoryRepository()
		repo.Seed(database.DemoDrafts(time.Now().UTC())...)
		log.Info("Using in-memory draft store")
		return repo, func() {}, nil
	}

	db, connErr := database.NewPostgresConnection(ctx, cfg.Database)
	if connErr != nil {
		return nil, nil, fmt.Errorf("database connection: %w", connErr)
	}
	log.Info("Database connection established",
		logger.String("host", cfg.Database.Host),
		logger.String("database", cfg.Database.Database),
	)

	closeDB := func() {
		if closeErr := database.Close(db); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}
	return database.NewPostgresRepository(db), closeDB, nil
}

// Package bootstrap handles application initialization and lifecycle management
// for the draft review service.
package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
)

// Start initializes and runs the draft review service until SIGINT or SIGTERM.
func Start() error {
	StartPprofServer()

	cfg, configErr := LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	profiler, profErr := StartPyroscope(cfg.Service.Name, cfg.Service.Version)
	if profErr != nil {
		log.Warn("Continuous profiling disabled", logger.Error(profErr))
	}
	defer func() { _ = profiler.Stop() }()

	log.Info("Starting Draft Review Service",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
		logger.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, repoErr := SetupRepository(ctx, cfg, log)
	if repoErr != nil {
		return fmt.Errorf("database: %w", repoErr)
	}
	defer closeRepo()

	rdb, redisErr := SetupRedis(ctx, cfg)
	if redisErr != nil {
		return fmt.Errorf("redis: %w", redisErr)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		log.Info("Redis change stream enabled", logger.String("stream", cfg.Redis.ChangesChannel))
	}

	server := SetupHTTPServer(cfg, repo, rdb, log)
	if runErr := server.Run(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server: %w", runErr)
	}

	log.Info("Draft Review Service stopped")
	return nil
}

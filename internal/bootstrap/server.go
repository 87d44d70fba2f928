package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/api"
	"github.com/jonesrussell/north-cloud/draft-review/internal/config"
	"github.com/jonesrussell/north-cloud/draft-review/internal/events"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/metrics"
	"github.com/jonesrussell/north-cloud/draft-review/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// Server is the HTTP server with lifecycle management.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// SetupHTTPServer creates the HTTP server with all handlers wired. rdb may be nil.
func SetupHTTPServer(cfg *config.Config, repo service.Repository, rdb *redis.Client, log logger.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	opts := []service.Option{}
	if publisher := events.NewPublisher(rdb, cfg.Redis.ChangesChannel, log); publisher != nil {
		opts = append(opts, service.WithPublisher(publisher))
	}
	svc := service.NewReviewService(repo, log, opts...)

	router := api.NewRouter(api.NewDraftHandler(svc, log), api.RouterConfig{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		JWTSecret:      cfg.Auth.JWTSecret,
		CORSOrigins:    cfg.Service.CORSOrigins,
		Debug:          cfg.Service.Debug,
		Logger:         log,
		Metrics:        recorder,
		Gatherer:       registry,
	})

	if cfg.Auth.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET is not set; draft routes are unauthenticated")
	}

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Service.Port),
			Handler:      router,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		logger: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", logger.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	}

	//nolint:contextcheck // ctx is already cancelled; shutdown needs its own deadline
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

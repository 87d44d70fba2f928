package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	ServiceName    string
	ServiceVersion string
	JWTSecret      string
	CORSOrigins    []string
	Debug          bool
	Logger         logger.Logger
	Metrics        *metrics.Recorder
	Gatherer       prometheus.Gatherer
}

// NewRouter builds the engine. Draft routes require a JWT when JWTSecret is set;
// /health and /metrics are always public.
func NewRouter(handler *DraftHandler, cfg RouterConfig) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()
	router.Use(
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
		CORSMiddleware(cfg.CORSOrigins),
		cfg.Metrics.Middleware(),
	)

	router.GET("/health", handler.Health(cfg.ServiceName, cfg.ServiceVersion))
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	if cfg.JWTSecret != "" {
		v1.Use(JWTMiddleware(cfg.JWTSecret))
	}
	SetupRoutes(v1, handler)

	return router
}

// SetupRoutes registers the draft endpoints on rg.
func SetupRoutes(rg *gin.RouterGroup, h *DraftHandler) {
	drafts := rg.Group("/drafts")

	drafts.GET("", h.ListDrafts)
	drafts.POST("", h.CreateDraft)
	drafts.GET("/stats", h.GetStats)
	drafts.POST("/bulk-review", h.BulkReview)
	drafts.POST("/bulk-delete", h.BulkDelete)
	drafts.GET("/:id", h.GetDraft)
	drafts.DELETE("/:id", h.DeleteDraft)
	drafts.POST("/:id/review", h.ReviewDraft)
	drafts.POST("/:id/regenerate", h.RegenerateDraft)
}

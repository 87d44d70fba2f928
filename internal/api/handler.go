// Package api serves the draft review HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
)

// ReviewService defines the operations needed by the handler.
type ReviewService interface {
	List(ctx context.Context, q domain.ListQuery) (domain.ListResponse, error)
	Stats(ctx context.Context) (domain.Stats, error)
	Get(ctx context.Context, id string) (*domain.Draft, error)
	Create(ctx context.Context, d domain.Draft) (*domain.Draft, error)
	Review(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (domain.ReviewResponse, error)
	Regenerate(ctx context.Context, id string) (domain.RegenerateResponse, error)
	Delete(ctx context.Context, id string) error
	BulkReview(ctx context.Context, ids []string, action domain.ReviewAction, reviewer string) (int, error)
	BulkDelete(ctx context.Context, ids []string) (int, error)
	Ping(ctx context.Context) error
}

// DraftHandler handles draft review HTTP requests.
type DraftHandler struct {
	svc    ReviewService
	logger logger.Logger
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(svc ReviewService, log logger.Logger) *DraftHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &DraftHandler{svc: svc, logger: log}
}

// ListDrafts handles GET /api/v1/drafts.
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.List(c.Request.Context(), domain.ListQuery{
		Search:   c.Query("search"),
		Status:   domain.Status(c.Query("status")),
		Priority: domain.Priority(c.Query("priority")),
		Source:   c.Query("source"),
		Category: domain.Kind(c.Query("category")),
		Sort:     c.Query("sort"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.respondError(c, "list", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidation(key, fmt.Sprintf("must be an integer, got %q", raw))
	}
	return n, nil
}

// GetStats handles GET /api/v1/drafts/stats.
func (h *DraftHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetDraft handles GET /api/v1/drafts/:id.
func (h *DraftHandler) GetDraft(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, domain.DraftResponse{Draft: *d})
}

// CreateDraft handles POST /api/v1/drafts.
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var d domain.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.svc.Create(c.Request.Context(), d)
	if err != nil {
		h.respondError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, domain.DraftResponse{Draft: *created})
}

// ReviewDraft handles POST /api/v1/drafts/:id/review.
func (h *DraftHandler) ReviewDraft(c *gin.Context) {
	var req domain.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Review(c.Request.Context(), c.Param("id"), Reviewer(c), req)
	if err != nil {
		h.respondError(c, "review", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegenerateDraft handles POST /api/v1/drafts/:id/regenerate.
func (h *DraftHandler) RegenerateDraft(c *gin.Context) {
	resp, err := h.svc.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "regenerate", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDraft handles DELETE /api/v1/drafts/:id.
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, domain.DeleteResponse{Message: "Draft deleted"})
}

// BulkReview handles POST /api/v1/drafts/bulk-review.
func (h *DraftHandler) BulkReview(c *gin.Context) {
	var req domain.BulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	processed, err := h.svc.BulkReview(c.Request.Context(), req.IDs, req.Action, Reviewer(c))
	if err != nil {
		h.respondError(c, "bulk-review", err)
		return
	}

	verb := "approved"
	if req.Action == domain.ActionReject {
		verb = "rejected"
	}
	c.JSON(http.StatusOK, domain.BulkReviewResponse{
		Message:   fmt.Sprintf("%d drafts %s", processed, verb),
		Processed: processed,
	})
}

// BulkDelete handles POST /api/v1/drafts/bulk-delete.
func (h *DraftHandler) BulkDelete(c *gin.Context) {
	var req domain.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	deleted, err := h.svc.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		h.respondError(c, "bulk-delete", err)
		return
	}
	c.JSON(http.StatusOK, domain.BulkDeleteResponse{
		Message: fmt.Sprintf("%d drafts deleted", deleted),
		Deleted: deleted,
	})
}

// Health handles GET /health.
func (h *DraftHandler) Health(name, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := h.svc.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("Health check failed", logger.Error(err))
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "service": name, "version": version})
	}
}

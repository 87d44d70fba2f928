package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation        = "validation_failed"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeConflict          = "conflict"
	CodeInternal          = "internal_error"
)

// respondError maps err to a status and code. Unexpected errors are logged with
// the request-scoped logger.
func (h *DraftHandler) respondError(c *gin.Context, op string, err error) {
	var valErr *apperrors.ValidationError

	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error(), "code": CodeValidation, "field": valErr.Field})
	case errors.Is(err, domain.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": CodeNotFound})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": CodeInvalidTransition})
	case errors.Is(err, domain.ErrDraftExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": CodeConflict})
	default:
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("Draft request failed", logger.String("operation", op), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": CodeInternal})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeValidation})
}

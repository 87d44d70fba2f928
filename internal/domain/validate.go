package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// schemaError converts validator output into a ValidationError rooted at prefix.
func schemaError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidation(prefix, err.Error())
	}

	fe := verrs[0]
	field := prefix + "." + lowerFirst(fe.StructNamespace())
	return apperrors.NewValidation(field, fmt.Sprintf("failed %q check", fe.Tag()))
}

func lowerFirst(ns string) string {
	// drop the root type name: "Draft.Extracted.Title" -> "extracted.title"
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}

// ValidateDraft checks the schema and lifecycle invariants of a draft received
// from the service.
func ValidateDraft(d Draft) error {
	if err := validate.Struct(d); err != nil {
		return schemaError("draft", err)
	}

	if !d.Type.Valid() {
		return apperrors.NewValidation("draft.extractedType", fmt.Sprintf("unknown opportunity type %q", d.Type))
	}

	approved := d.Status == StatusApproved
	if approved != (d.OpportunityID != "") {
		return apperrors.NewValidation("draft.opportunityId", "must be set iff status is approved")
	}

	reviewed := d.Status.Reviewed()
	if reviewed != (d.ReviewedAt != nil) || reviewed != (d.ReviewedBy != "") {
		return apperrors.NewValidation("draft.reviewedAt", "review metadata must be set iff status is approved or rejected")
	}

	return nil
}

// ValidateList checks a list page and every draft on it.
func ValidateList(l ListResponse) error {
	if err := validate.Struct(l); err != nil {
		return schemaError("list", err)
	}
	for i := range l.Items {
		if err := ValidateDraft(l.Items[i]); err != nil {
			return fmt.Errorf("list.items[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateStats checks that the status counts add up to the total.
func ValidateStats(s Stats) error {
	if err := validate.Struct(s); err != nil {
		return schemaError("stats", err)
	}
	if s.Pending+s.Approved+s.Rejected != s.Total {
		return apperrors.NewValidation("stats.total", "does not equal pending + approved + rejected")
	}
	return nil
}

// ValidateReviewResponse checks that an approve carried an opportunity.
func ValidateReviewResponse(action ReviewAction, r ReviewResponse) error {
	if action == ActionApprove {
		if r.Opportunity == nil {
			return apperrors.NewValidation("review.opportunity", "is required on approve")
		}
		if err := validate.Struct(r.Opportunity); err != nil {
			return schemaError("review.opportunity", err)
		}
	}
	return nil
}

// ValidateID rejects empty draft ids before any call is made.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidation("id", "is required")
	}
	return nil
}

// ValidateReviewRequest checks a review request before dispatch.
func ValidateReviewRequest(id string, req ReviewRequest) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	switch req.Action {
	case ActionApprove, ActionReject:
	case ActionEdit:
		if req.Edits == nil || req.Edits.Empty() {
			return apperrors.NewValidation("edits", "are required for edit")
		}
		if req.Edits.Type != nil && !req.Edits.Type.Valid() {
			return apperrors.NewValidation("edits.type", fmt.Sprintf("unknown opportunity type %q", *req.Edits.Type))
		}
		if req.Edits.Title != nil && strings.TrimSpace(*req.Edits.Title) == "" {
			return apperrors.NewValidation("edits.title", "must not be blank")
		}
	default:
		return apperrors.NewValidation("action", fmt.Sprintf("unknown action %q", req.Action))
	}
	return nil
}

// ValidateBulkAction checks a bulk review action.
func ValidateBulkAction(action ReviewAction) error {
	if action != ActionApprove && action != ActionReject {
		return apperrors.NewValidation("action", "must be approve or reject")
	}
	return nil
}

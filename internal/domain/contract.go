package domain

// ReviewAction is the action carried by a review request.
type ReviewAction string

// Review actions. Bulk review accepts only approve and reject.
const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
	ActionEdit    ReviewAction = "edit"
)

// ListResponse is one page of drafts plus list-level counts.
type ListResponse struct {
	Items      []Draft `json:"items"`
	Total      int     `json:"total"      validate:"min=0"`
	Pending    int     `json:"pending"    validate:"min=0"`
	Page       int     `json:"page"       validate:"min=1"`
	TotalPages int     `json:"totalPages" validate:"min=0"`
}

// Contains reports whether a draft with id is on this page.
func (l ListResponse) Contains(id string) bool {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return true
		}
	}
	return false
}

// Find returns the draft with id from this page.
func (l ListResponse) Find(id string) (Draft, bool) {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return l.Items[i], true
		}
	}
	return Draft{}, false
}

// DraftResponse wraps a single draft.
type DraftResponse struct {
	Draft Draft `json:"draft"`
}

// ReviewRequest is the body of POST /drafts/:id/review.
type ReviewRequest struct {
	Action   ReviewAction `json:"action"             binding:"required,oneof=approve reject edit"`
	Feedback string       `json:"feedback,omitempty"`
	Edits    *Edits       `json:"edits,omitempty"`
}

// Opportunity is the published entity created on approval.
type Opportunity struct {
	ID       string `json:"id"                 validate:"required"`
	DraftID  string `json:"draftId"`
	Title    string `json:"title"`
	Type     Kind   `json:"type"`
	Deadline string `json:"deadline,omitempty"`
	Link     string `json:"link,omitempty"`
}

// ReviewResponse answers a review request. Opportunity is present only on approve.
type ReviewResponse struct {
	Message     string       `json:"message"`
	Opportunity *Opportunity `json:"opportunity,omitempty"`
}

// RegenerateResponse carries the re-extracted draft.
type RegenerateResponse struct {
	Message string `json:"message"`
	Draft   Draft  `json:"draft"`
}

// DeleteResponse answers DELETE /drafts/:id.
type DeleteResponse struct {
	Message string `json:"message"`
}

// BulkReviewRequest is the body of POST /drafts/bulk-review.
type BulkReviewRequest struct {
	IDs    []string     `json:"ids"    binding:"required,min=1,dive,required"`
	Action ReviewAction `json:"action" binding:"required,oneof=approve reject"`
}

// BulkReviewResponse reports how many drafts changed status.
type BulkReviewResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed" validate:"min=0"`
}

// BulkDeleteRequest is the body of POST /drafts/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,required"`
}

// BulkDeleteResponse reports how many drafts were removed.
type BulkDeleteResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted" validate:"min=0"`
}

// Package review is the draft review workflow: a Console aggregating the list,
// stats and per-draft queries with the named review mutations, and an Editor
// per open draft for the edit sub-mode.
package review

import (
	"context"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
)

// Backend is the review service contract. client.ReviewClient implements it.
type Backend interface {
	ListDrafts(ctx context.Context, f filter.Filters) (domain.ListResponse, error)
	DraftStats(ctx context.Context) (domain.Stats, error)
	GetDraft(ctx context.Context, id string) (domain.Draft, error)
	ReviewDraft(ctx context.Context, id string, req domain.ReviewRequest) (domain.ReviewResponse, error)
	RegenerateDraft(ctx context.Context, id string) (domain.RegenerateResponse, error)
	DeleteDraft(ctx context.Context, id string) (domain.DeleteResponse, error)
	BulkReview(ctx context.Context, req domain.BulkReviewRequest) (domain.BulkReviewResponse, error)
	BulkDelete(ctx context.Context, req domain.BulkDeleteRequest) (domain.BulkDeleteResponse, error)
}

// RejectInput is the input of the reject mutation.
type RejectInput struct {
	ID       string
	Feedback string
}

// EditInput is the input of the edit mutation.
type EditInput struct {
	ID    string
	Edits domain.Edits
}

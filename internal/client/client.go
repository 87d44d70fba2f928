// Package client talks to the draft review service over HTTP. Every decoded
// response is schema-checked before it is handed to the console.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	apiPrefix          = "/api/v1"
)

// ReviewClient implements review.Backend against the review service.
type ReviewClient struct {
	baseURL string
	http    *http.Client
	tokens  session.TokenSource
	guard   *session.Guard
}

// Option configures a ReviewClient.
type Option func(*ReviewClient)

// WithHTTPClient replaces the default client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *ReviewClient) { c.http = h }
}

// WithTokenSource authenticates requests with a bearer token.
func WithTokenSource(ts session.TokenSource) Option {
	return func(c *ReviewClient) { c.tokens = ts }
}

// WithGuard expires g when the service answers 401.
func WithGuard(g *session.Guard) Option {
	return func(c *ReviewClient) { c.guard = g }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *ReviewClient {
	c := &ReviewClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ReviewClient) endpoint(path string, query url.Values) string {
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func draftPath(id string, suffix string) string {
	return "/drafts/" + url.PathEscape(id) + suffix
}

// ListDrafts fetches one page of drafts.
func (c *ReviewClient) ListDrafts(ctx context.Context, f filter.Filters) (domain.ListResponse, error) {
	resp, err := doJSON[domain.ListResponse](ctx, c, "list drafts", http.MethodGet, c.endpoint("/drafts", f.Values()), nil)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if err = domain.ValidateList(*resp); err != nil {
		return domain.ListResponse{}, fmt.Errorf("list drafts: %w", err)
	}
	return *resp, nil
}

// DraftStats fetches the status aggregate.
func (c *ReviewClient) DraftStats(ctx context.Context) (domain.Stats, error) {
	resp, err := doJSON[domain.Stats](ctx, c, "draft stats", http.MethodGet, c.endpoint("/drafts/stats", nil), nil)
	if err != nil {
		return domain.Stats{}, err
	}
	if err = domain.ValidateStats(*resp); err != nil {
		return domain.Stats{}, fmt.Errorf("draft stats: %w", err)
	}
	return *resp, nil
}

// GetDraft fetches a single draft.
func (c *ReviewClient) GetDraft(ctx context.Context, id string) (domain.Draft, error) {
	if err := domain.ValidateID(id); err != nil {
		return domain.Draft{}, err
	}

	resp, err := doJSON[domain.DraftResponse](ctx, c, "get draft", http.MethodGet, c.endpoint(draftPath(id, ""), nil), nil)
	if err != nil {
		return domain.Draft{}, err
	}
	if err = domain.ValidateDraft(resp.Draft); err != nil {
		return domain.Draft{}, fmt.Errorf("get draft: %w", err)
	}
	return resp.Draft, nil
}

// ReviewDraft approves, rejects or edits a draft.
func (c *ReviewClient) ReviewDraft(ctx context.Context, id string, req domain.ReviewRequest) (domain.ReviewResponse, error) {
	if err := domain.ValidateReviewRequest(id, req); err != nil {
		return domain.ReviewResponse{}, err
	}

	resp, err := doJSON[domain.ReviewResponse](ctx, c, "review draft", http.MethodPost, c.endpoint(draftPath(id, "/review"), nil), req)
	if err != nil {
		return domain.ReviewResponse{}, err
	}
	if err = domain.ValidateReviewResponse(req.Action, *resp); err != nil {
		return domain.ReviewResponse{}, fmt.Errorf("review draft: %w", err)
	}
	return *resp, nil
}

// RegenerateDraft re-runs extraction for a draft.
func (c *ReviewClient) RegenerateDraft(ctx context.Context, id string) (domain.RegenerateResponse, error) {
	if err := domain.ValidateID(id); err != nil {
		return domain.RegenerateResponse{}, err
	}

	resp, err := doJSON[domain.RegenerateResponse](ctx, c, "regenerate draft", http.MethodPost, c.endpoint(draftPath(id, "/regenerate"), nil), struct{}{})
	if err != nil {
		return domain.RegenerateResponse{}, err
	}
	if err = domain.ValidateDraft(resp.Draft); err != nil {
		return domain.RegenerateResponse{}, fmt.Errorf("regenerate draft: %w", err)
	}
	return *resp, nil
}

// DeleteDraft removes a draft.
func (c *ReviewClient) DeleteDraft(ctx context.Context, id string) (domain.DeleteResponse, error) {
	if err := domain.ValidateID(id); err != nil {
		return domain.DeleteResponse{}, err
	}

	resp, err := doJSON[domain.DeleteResponse](ctx, c, "delete draft", http.MethodDelete, c.endpoint(draftPath(id, ""), nil), nil)
	if err != nil {
		return domain.DeleteResponse{}, err
	}
	return *resp, nil
}

// BulkReview approves or rejects several drafts in one call.
func (c *ReviewClient) BulkReview(ctx context.Context, req domain.BulkReviewRequest) (domain.BulkReviewResponse, error) {
	if err := domain.ValidateBulkAction(req.Action); err != nil {
		return domain.BulkReviewResponse{}, err
	}

	resp, err := doJSON[domain.BulkReviewResponse](ctx, c, "bulk review", http.MethodPost, c.endpoint("/drafts/bulk-review", nil), req)
	if err != nil {
		return domain.BulkReviewResponse{}, err
	}
	if resp.Processed < 0 || resp.Processed > len(req.IDs) {
		return domain.BulkReviewResponse{}, apperrors.NewValidation("processed", fmt.Sprintf("count %d out of range", resp.Processed))
	}
	return *resp, nil
}

// BulkDelete removes several drafts in one call.
func (c *ReviewClient) BulkDelete(ctx context.Context, req domain.BulkDeleteRequest) (domain.BulkDeleteResponse, error) {
	resp, err := doJSON[domain.BulkDeleteResponse](ctx, c, "bulk delete", http.MethodPost, c.endpoint("/drafts/bulk-delete", nil), req)
	if err != nil {
		return domain.BulkDeleteResponse{}, err
	}
	if resp.Deleted < 0 || resp.Deleted > len(req.IDs) {
		return domain.BulkDeleteResponse{}, apperrors.NewValidation("deleted", fmt.Sprintf("count %d out of range", resp.Deleted))
	}
	return *resp, nil
}

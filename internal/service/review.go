// Package service implements the draft review rules behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/events"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
)

// DefaultReviewer is recorded when a request carries no reviewer identity.
const DefaultReviewer = "reviewer"

// Repository is the draft store.
type Repository interface {
	ListDrafts(ctx context.Context, q domain.ListQuery) (domain.ListResult, error)
	Stats(ctx context.Context) (domain.Stats, error)
	GetDraft(ctx context.Context, id string) (*domain.Draft, error)
	CreateDraft(ctx context.Context, d *domain.Draft) error
	UpdateDraft(ctx context.Context, d *domain.Draft) error
	// BulkUpdate locks every id, fails with domain.ErrDraftNotFound if any is
	// unknown, and applies mutate to each. Drafts for which mutate returns
	// domain.ErrSkip are left alone; any other error aborts the whole batch.
	BulkUpdate(ctx context.Context, ids []string, mutate func(*domain.Draft) error) (int, error)
	DeleteDraft(ctx context.Context, id string) error
	DeleteDrafts(ctx context.Context, ids []string) (int, error)
	Ping(ctx context.Context) error
}

// Regenerator re-runs extraction for a draft and returns the new fields.
type Regenerator interface {
	Regenerate(ctx context.Context, d domain.Draft) (domain.Extracted, error)
}

// MarkRegenerator keeps the extracted fields as they are. It stands in for the
// extraction pipeline so the regenerate flow can run end to end.
type MarkRegenerator struct{}

// Regenerate returns the existing fields.
func (MarkRegenerator) Regenerate(_ context.Context, d domain.Draft) (domain.Extracted, error) {
	return d.Extracted.Clone(), nil
}

// Publisher receives draft change notifications.
type Publisher interface {
	PublishAsync(event events.DraftEvent)
}

// ReviewService applies review actions to stored drafts.
type ReviewService struct {
	repo        Repository
	regenerator Regenerator
	publisher   Publisher
	logger      logger.Logger
	now         func() time.Time
	newID       func() string
}

// Option configures a ReviewService.
type Option func(*ReviewService)

// WithRegenerator replaces MarkRegenerator.
func WithRegenerator(r Regenerator) Option {
	return func(s *ReviewService) { s.regenerator = r }
}

// WithPublisher sends change notifications to p.
func WithPublisher(p Publisher) Option {
	return func(s *ReviewService) { s.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ReviewService) { s.now = now }
}

// WithIDGenerator overrides uuid generation for drafts and opportunities.
func WithIDGenerator(fn func() string) Option {
	return func(s *ReviewService) { s.newID = fn }
}

// NewReviewService creates a ReviewService.
func NewReviewService(repo Repository, log logger.Logger, opts ...Option) *ReviewService {
	if log == nil {
		log = logger.NewNop()
	}
	s := &ReviewService{
		repo:        repo,
		regenerator: MarkRegenerator{},
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the repository.
func (s *ReviewService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// List returns one page of drafts.
func (s *ReviewService) List(ctx context.Context, q domain.ListQuery) (domain.ListResponse, error) {
	q = q.Normalize()

	if q.Category != "" && !q.Category.Valid() {
		return domain.ListResponse{}, apperrors.NewValidation("category", fmt.Sprintf("unknown opportunity type %q", q.Category))
	}

	res, err := s.repo.ListDrafts(ctx, q)
	if err != nil {
		return domain.ListResponse{}, fmt.Errorf("list drafts: %w", err)
	}

	items := res.Items
	if items == nil {
		items = []domain.Draft{}
	}

	return domain.ListResponse{
		Items:      items,
		Total:      res.Total,
		Pending:    res.Pending,
		Page:       q.Page,
		TotalPages: domain.TotalPages(res.Total, q.Limit),
	}, nil
}

// Stats returns the status aggregate over all drafts.
func (s *ReviewService) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("draft stats: %w", err)
	}
	return stats, nil
}

// Get returns a draft.
func (s *ReviewService) Get(ctx context.Context, id string) (*domain.Draft, error) {
	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

// Create stores a new pending draft produced by the extraction pipeline.
func (s *ReviewService) Create(ctx context.Context, d domain.Draft) (*domain.Draft, error) {
	now := s.now()

	d.Status = domain.StatusPending
	d.Feedback, d.ReviewedAt, d.ReviewedBy, d.OpportunityID = "", nil, "", ""
	if d.ID == "" {
		d.ID = s.newID()
	}
	if d.Priority == "" {
		d.Priority = domain.PriorityMedium
	}
	d.CreatedAt, d.UpdatedAt = now, now

	if err := domain.ValidateDraft(d); err != nil {
		return nil, err
	}

	if err := s.repo.CreateDraft(ctx, &d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	s.publish(events.DraftCreated, "", 1, d.ID)
	return &d, nil
}

// Review applies approve, reject or edit to a pending draft.
func (s *ReviewService) Review(ctx context.Context, id, reviewer string, req domain.ReviewRequest) (domain.ReviewResponse, error) {
	if err := domain.ValidateReviewRequest(id, req); err != nil {
		return domain.ReviewResponse{}, err
	}

	if reviewer == "" {
		reviewer = DefaultReviewer
	}

	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return domain.ReviewResponse{}, fmt.Errorf("review draft: %w", err)
	}

	now := s.now()
	var resp domain.ReviewResponse
	var eventType events.Type

	switch req.Action {
	case domain.ActionApprove:
		if err = d.Approve(reviewer, s.newID(), now); err != nil {
			return domain.ReviewResponse{}, err
		}
		resp = domain.ReviewResponse{Message: "Draft approved", Opportunity: opportunityFor(d)}
		eventType = events.DraftApproved
	case domain.ActionReject:
		if err = d.Reject(reviewer, req.Feedback, now); err != nil {
			return domain.ReviewResponse{}, err
		}
		resp = domain.ReviewResponse{Message: "Draft rejected"}
		eventType = events.DraftRejected
	case domain.ActionEdit:
		if err = d.Edit(*req.Edits, now); err != nil {
			return domain.ReviewResponse{}, err
		}
		if err = domain.ValidateDraft(*d); err != nil {
			return domain.ReviewResponse{}, err
		}
		resp = domain.ReviewResponse{Message: "Draft updated"}
		eventType = events.DraftEdited
	}

	if err = s.repo.UpdateDraft(ctx, d); err != nil {
		return domain.ReviewResponse{}, fmt.Errorf("save draft: %w", err)
	}

	s.logger.Info("Draft reviewed",
		logger.String("draft_id", id),
		logger.String("action", string(req.Action)),
		logger.String("reviewer", reviewer),
	)
	s.publish(eventType, reviewer, 1, id)
	return resp, nil
}

func opportunityFor(d *domain.Draft) *domain.Opportunity {
	return &domain.Opportunity{
		ID:       d.OpportunityID,
		DraftID:  d.ID,
		Title:    d.Title,
		Type:     d.Type,
		Deadline: d.Deadline,
		Link:     d.Link,
	}
}

// Regenerate re-runs extraction. Status and review metadata are unchanged.
func (s *ReviewService) Regenerate(ctx context.Context, id string) (domain.RegenerateResponse, error) {
	if err := domain.ValidateID(id); err != nil {
		return domain.RegenerateResponse{}, err
	}

	d, err := s.repo.GetDraft(ctx, id)
	if err != nil {
		return domain.RegenerateResponse{}, fmt.Errorf("regenerate draft: %w", err)
	}

	extracted, err := s.regenerator.Regenerate(ctx, *d)
	if err != nil {
		return domain.RegenerateResponse{}, fmt.Errorf("regenerate draft: %w", err)
	}

	now := s.now()
	d.Extracted = extracted
	d.RegeneratedAt = &now
	d.UpdatedAt = now

	if err = domain.ValidateDraft(*d); err != nil {
		return domain.RegenerateResponse{}, fmt.Errorf("regenerated draft: %w", err)
	}
	if err = s.repo.UpdateDraft(ctx, d); err != nil {
		return domain.RegenerateResponse{}, fmt.Errorf("save draft: %w", err)
	}

	s.publish(events.DraftRegenerated, "", 1, id)
	return domain.RegenerateResponse{Message: "Draft regenerated", Draft: *d}, nil
}

// Delete removes a draft.
func (s *ReviewService) Delete(ctx context.Context, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	s.publish(events.DraftDeleted, "", 1, id)
	return nil
}

// BulkReview approves or rejects ids as one unit. Unknown ids fail the whole
// batch; drafts that are no longer pending are skipped and not counted.
func (s *ReviewService) BulkReview(ctx context.Context, ids []string, action domain.ReviewAction, reviewer string) (int, error) {
	if err := domain.ValidateBulkAction(action); err != nil {
		return 0, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, apperrors.NewValidation("ids", "at least one id is required")
	}
	if reviewer == "" {
		reviewer = DefaultReviewer
	}

	now := s.now()
	processed, err := s.repo.BulkUpdate(ctx, ids, func(d *domain.Draft) error {
		if d.Status != domain.StatusPending {
			return domain.ErrSkip
		}
		if action == domain.ActionApprove {
			return d.Approve(reviewer, s.newID(), now)
		}
		return d.Reject(reviewer, "", now)
	})
	if err != nil {
		return 0, fmt.Errorf("bulk review: %w", err)
	}

	s.logger.Info("Drafts bulk reviewed",
		logger.String("action", string(action)),
		logger.Int("requested", len(ids)),
		logger.Int("processed", processed),
	)
	s.publish(events.DraftsBulkReview, reviewer, processed, ids...)
	return processed, nil
}

// BulkDelete removes ids and reports how many existed.
func (s *ReviewService) BulkDelete(ctx context.Context, ids []string) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, apperrors.NewValidation("ids", "at least one id is required")
	}

	deleted, err := s.repo.DeleteDrafts(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}

	s.publish(events.DraftsBulkDelete, "", deleted, ids...)
	return deleted, nil
}

func (s *ReviewService) publish(t events.Type, actor string, count int, ids ...string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishAsync(events.DraftEvent{Type: t, DraftIDs: ids, Actor: actor, Count: count})
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

package review_test

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
)

// fakeBackend is an in-process review service. Stats are always computed over
// every draft, independently of any list page.
type fakeBackend struct {
	mu     sync.Mutex
	order  []string
	drafts map[string]domain.Draft
	calls  map[string]int
	fail   map[string]error
	hooks  map[string]func()
	nextID int
}

func newFakeBackend(drafts ...domain.Draft) *fakeBackend {
	f := &fakeBackend{
		drafts: make(map[string]domain.Draft),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
		hooks:  make(map[string]func()),
	}
	for _, d := range drafts {
		f.order = append(f.order, d.ID)
		f.drafts[d.ID] = d
	}
	return f
}

func (f *fakeBackend) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	hook := f.hooks[op]
	err := f.fail[op]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeBackend) hook(op string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

func (f *fakeBackend) ListDrafts(_ context.Context, flt filter.Filters) (domain.ListResponse, error) {
	if err := f.enter("list"); err != nil {
		return domain.ListResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []domain.Draft
	pending := 0
	for _, id := range f.order {
		d := f.drafts[id]
		if flt.Status != "" && string(d.Status) != flt.Status {
			continue
		}
		if flt.Priority != "" && string(d.Priority) != flt.Priority {
			continue
		}
		if flt.Search != "" && !strings.Contains(strings.ToLower(d.Title), strings.ToLower(flt.Search)) {
			continue
		}
		if d.Status == domain.StatusPending {
			pending++
		}
		matched = append(matched, d)
	}

	limit := max(flt.Limit, 1)
	totalPages := (len(matched) + limit - 1) / limit
	start := min((flt.Page-1)*limit, len(matched))
	end := min(start+limit, len(matched))

	return domain.ListResponse{
		Items:      slices.Clone(matched[start:end]),
		Total:      len(matched),
		Pending:    pending,
		Page:       flt.Page,
		TotalPages: totalPages,
	}, nil
}

func (f *fakeBackend) DraftStats(context.Context) (domain.Stats, error) {
	if err := f.enter("stats"); err != nil {
		return domain.Stats{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var s domain.Stats
	for _, d := range f.drafts {
		s.Total++
		switch d.Status {
		case domain.StatusPending:
			s.Pending++
		case domain.StatusApproved:
			s.Approved++
		case domain.StatusRejected:
			s.Rejected++
		}
		switch d.Priority {
		case domain.PriorityHigh:
			s.ByPriority.High++
		case domain.PriorityMedium:
			s.ByPriority.Medium++
		case domain.PriorityLow:
			s.ByPriority.Low++
		}
	}
	return s, nil
}

func notFound(id string) error {
	return &apperrors.ServiceError{StatusCode: http.StatusNotFound, Message: "draft " + id + " not found"}
}

func (f *fakeBackend) GetDraft(_ context.Context, id string) (domain.Draft, error) {
	if err := f.enter("get"); err != nil {
		return domain.Draft{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drafts[id]
	if !ok {
		return domain.Draft{}, notFound(id)
	}
	return d, nil
}

func (f *fakeBackend) ReviewDraft(_ context.Context, id string, req domain.ReviewRequest) (domain.ReviewResponse, error) {
	if err := f.enter("review"); err != nil {
		return domain.ReviewResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drafts[id]
	if !ok {
		return domain.ReviewResponse{}, notFound(id)
	}

	now := time.Now()
	var resp domain.ReviewResponse
	var err error
	switch req.Action {
	case domain.ActionApprove:
		f.nextID++
		oppID := fmt.Sprintf("opp-%d", f.nextID)
		err = d.Approve("reviewer", oppID, now)
		resp = domain.ReviewResponse{Message: "approved", Opportunity: &domain.Opportunity{ID: oppID, DraftID: id, Title: d.Title}}
	case domain.ActionReject:
		err = d.Reject("reviewer", req.Feedback, now)
		resp = domain.ReviewResponse{Message: "rejected"}
	case domain.ActionEdit:
		err = d.Edit(*req.Edits, now)
		resp = domain.ReviewResponse{Message: "updated"}
	}
	if err != nil {
		return domain.ReviewResponse{}, &apperrors.ServiceError{StatusCode: http.StatusConflict, Message: err.Error()}
	}

	f.drafts[id] = d
	return resp, nil
}

func (f *fakeBackend) RegenerateDraft(_ context.Context, id string) (domain.RegenerateResponse, error) {
	if err := f.enter("regenerate"); err != nil {
		return domain.RegenerateResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drafts[id]
	if !ok {
		return domain.RegenerateResponse{}, notFound(id)
	}
	now := time.Now()
	d.Description = "regenerated: " + d.Description
	d.RegeneratedAt = &now
	f.drafts[id] = d
	return domain.RegenerateResponse{Message: "regenerated", Draft: d}, nil
}

func (f *fakeBackend) DeleteDraft(_ context.Context, id string) (domain.DeleteResponse, error) {
	if err := f.enter("delete"); err != nil {
		return domain.DeleteResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.drafts[id]; !ok {
		return domain.DeleteResponse{}, notFound(id)
	}
	f.remove(id)
	return domain.DeleteResponse{Message: "deleted"}, nil
}

func (f *fakeBackend) BulkReview(_ context.Context, req domain.BulkReviewRequest) (domain.BulkReviewResponse, error) {
	if err := f.enter("bulk-review"); err != nil {
		return domain.BulkReviewResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	processed := 0
	for _, id := range req.IDs {
		d, ok := f.drafts[id]
		if !ok || d.Status != domain.StatusPending {
			continue
		}
		if req.Action == domain.ActionApprove {
			f.nextID++
			_ = d.Approve("reviewer", fmt.Sprintf("opp-%d", f.nextID), time.Now())
		} else {
			_ = d.Reject("reviewer", "", time.Now())
		}
		f.drafts[id] = d
		processed++
	}
	return domain.BulkReviewResponse{Message: "done", Processed: processed}, nil
}

func (f *fakeBackend) BulkDelete(_ context.Context, req domain.BulkDeleteRequest) (domain.BulkDeleteResponse, error) {
	if err := f.enter("bulk-delete"); err != nil {
		return domain.BulkDeleteResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := 0
	for _, id := range req.IDs {
		if _, ok := f.drafts[id]; ok {
			f.remove(id)
			deleted++
		}
	}
	return domain.BulkDeleteResponse{Message: "deleted", Deleted: deleted}, nil
}

func (f *fakeBackend) remove(id string) {
	delete(f.drafts, id)
	f.order = slices.DeleteFunc(f.order, func(s string) bool { return s == id })
}

func draft(id string, status domain.Status, priority domain.Priority) domain.Draft {
	d := domain.Draft{
		ID:       id,
		Status:   domain.StatusPending,
		Priority: priority,
		Extracted: domain.Extracted{
			Title:       "Opportunity " + id,
			Type:        domain.KindGrant,
			Description: "Funding for " + id,
		},
	}
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	switch status {
	case domain.StatusApproved:
		_ = d.Approve("seed", "opp-seed-"+id, at)
	case domain.StatusRejected:
		_ = d.Reject("seed", "seed", at)
	}
	return d
}

// scenarioDrafts is the fixture with stats {total:10, pending:4, approved:5, rejected:1}.
func scenarioDrafts() []domain.Draft {
	return []domain.Draft{
		draft("D1", domain.StatusApproved, domain.PriorityHigh),
		draft("D2", domain.StatusApproved, domain.PriorityLow),
		draft("D3", domain.StatusPending, domain.PriorityMedium),
		draft("D4", domain.StatusApproved, domain.PriorityMedium),
		draft("D5", domain.StatusRejected, domain.PriorityLow),
		draft("D6", domain.StatusPending, domain.PriorityHigh),
		draft("D7", domain.StatusPending, domain.PriorityHigh),
		draft("D8", domain.StatusApproved, domain.PriorityLow),
		draft("D9", domain.StatusApproved, domain.PriorityMedium),
		draft("D10", domain.StatusPending, domain.PriorityLow),
	}
}

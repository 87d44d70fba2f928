package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
)

// MemoryRepository keeps drafts in a map. It backs local development and
// tests that need the full review flow without PostgreSQL.
type MemoryRepository struct {
	mu     sync.RWMutex
	drafts map[string]domain.Draft
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{drafts: make(map[string]domain.Draft)}
}

func cloneDraft(d domain.Draft) domain.Draft {
	d.Extracted = d.Extracted.Clone()
	if d.ReviewedAt != nil {
		t := *d.ReviewedAt
		d.ReviewedAt = &t
	}
	if d.RegeneratedAt != nil {
		t := *d.RegeneratedAt
		d.RegeneratedAt = &t
	}
	return d
}

// ListDrafts filters, sorts and pages the stored drafts.
func (m *MemoryRepository) ListDrafts(_ context.Context, q domain.ListQuery) (domain.ListResult, error) {
	q = q.Normalize()

	m.mu.RLock()
	matched := make([]domain.Draft, 0, len(m.drafts))
	for _, d := range m.drafts {
		if q.Matches(d) {
			matched = append(matched, d)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matched, compareBy(q.Sort))

	res := domain.ListResult{Total: len(matched), Items: []domain.Draft{}}
	for i := range matched {
		if matched[i].Status == domain.StatusPending {
			res.Pending++
		}
	}

	start := min(q.Offset(), len(matched))
	end := min(start+q.Limit, len(matched))
	for _, d := range matched[start:end] {
		res.Items = append(res.Items, cloneDraft(d))
	}
	return res, nil
}

func compareBy(sortKey string) func(a, b domain.Draft) int {
	byID := func(a, b domain.Draft) int { return strings.Compare(a.ID, b.ID) }
	switch sortKey {
	case domain.SortOldest:
		return func(a, b domain.Draft) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), byID(a, b))
		}
	case domain.SortPriority:
		return func(a, b domain.Draft) int {
			return cmp.Or(
				cmp.Compare(domain.PriorityRank(a.Priority), domain.PriorityRank(b.Priority)),
				b.CreatedAt.Compare(a.CreatedAt),
				byID(a, b),
			)
		}
	case domain.SortDeadline:
		return func(a, b domain.Draft) int {
			return cmp.Or(compareDeadline(a.Deadline, b.Deadline), byID(a, b))
		}
	case domain.SortTitle:
		return func(a, b domain.Draft) int {
			return cmp.Or(strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)), byID(a, b))
		}
	default:
		return func(a, b domain.Draft) int {
			return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), byID(a, b))
		}
	}
}

// compareDeadline orders empty deadlines last.
func compareDeadline(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// Stats aggregates every stored draft.
func (m *MemoryRepository) Stats(_ context.Context) (domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s domain.Stats
	for _, d := range m.drafts {
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

// GetDraft returns a copy of the draft with id.
func (m *MemoryRepository) GetDraft(_ context.Context, id string) (*domain.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft %s: %w", id, domain.ErrDraftNotFound)
	}
	out := cloneDraft(d)
	return &out, nil
}

// CreateDraft stores d.
func (m *MemoryRepository) CreateDraft(_ context.Context, d *domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drafts[d.ID]; ok {
		return fmt.Errorf("draft %s: %w", d.ID, domain.ErrDraftExists)
	}
	m.drafts[d.ID] = cloneDraft(*d)
	return nil
}

// UpdateDraft overwrites the stored draft with d.
func (m *MemoryRepository) UpdateDraft(_ context.Context, d *domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drafts[d.ID]; !ok {
		return fmt.Errorf("draft %s: %w", d.ID, domain.ErrDraftNotFound)
	}
	m.drafts[d.ID] = cloneDraft(*d)
	return nil
}

// BulkUpdate applies mutate to every id and stores the result only if all
// ids exist and no mutation failed.
func (m *MemoryRepository) BulkUpdate(_ context.Context, ids []string, mutate func(*domain.Draft) error) (int, error) {
	ids = distinct(ids)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if _, ok := m.drafts[id]; !ok {
			return 0, fmt.Errorf("draft %s: %w", id, domain.ErrDraftNotFound)
		}
	}

	staged := make([]domain.Draft, 0, len(ids))
	for _, id := range ids {
		d := cloneDraft(m.drafts[id])
		if err := mutate(&d); err != nil {
			if errors.Is(err, domain.ErrSkip) {
				continue
			}
			return 0, err
		}
		staged = append(staged, d)
	}

	for _, d := range staged {
		m.drafts[d.ID] = d
	}
	return len(staged), nil
}

// DeleteDraft removes the draft with id.
func (m *MemoryRepository) DeleteDraft(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drafts[id]; !ok {
		return fmt.Errorf("draft %s: %w", id, domain.ErrDraftNotFound)
	}
	delete(m.drafts, id)
	return nil
}

// DeleteDrafts removes ids and returns how many existed.
func (m *MemoryRepository) DeleteDrafts(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, id := range distinct(ids) {
		if _, ok := m.drafts[id]; ok {
			delete(m.drafts, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (m *MemoryRepository) Ping(_ context.Context) error { return nil }

// Seed stores drafts, replacing any with the same id.
func (m *MemoryRepository) Seed(drafts ...domain.Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range drafts {
		m.drafts[d.ID] = cloneDraft(d)
	}
}

// DemoDrafts returns a small pending queue for local development.
func DemoDrafts(now time.Time) []domain.Draft {
	mk := func(id string, age time.Duration, p domain.Priority, kind domain.Kind, title, source string) domain.Draft {
		created := now.Add(-age)
		return domain.Draft{
			ID:       id,
			Status:   domain.StatusPending,
			Priority: p,
			Source:   source,
			URL:      "https://" + source + "/posts/" + id,
			Extracted: domain.Extracted{
				Title:       title,
				Type:        kind,
				Description: title + " extracted from " + source + ".",
				Deadline:    now.Add(30 * 24 * time.Hour).Add(-age).Format(time.DateOnly),
				Link:        "https://" + source + "/apply/" + id,
			},
			CreatedAt: created,
			UpdatedAt: created,
		}
	}

	return []domain.Draft{
		mk("demo-1", time.Hour, domain.PriorityHigh, domain.KindGrant, "Community Arts Grant", "arts.example.org"),
		mk("demo-2", 2*time.Hour, domain.PriorityMedium, domain.KindScholarship, "STEM Scholarship", "edu.example.org"),
		mk("demo-3", 3*time.Hour, domain.PriorityLow, domain.KindInternship, "Summer Data Internship", "jobs.example.com"),
		mk("demo-4", 4*time.Hour, domain.PriorityHigh, domain.KindFellowship, "Climate Research Fellowship", "research.example.org"),
		mk("demo-5", 5*time.Hour, domain.PriorityMedium, domain.KindConference, "Open Source Summit Travel Award", "events.example.com"),
	}
}

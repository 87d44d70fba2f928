package domain

import (
	"errors"
	"strings"
)

// Repository errors.
var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrDraftExists   = errors.New("draft already exists")
)

// ErrSkip tells a bulk update to leave a draft unchanged.
var ErrSkip = errors.New("skip draft")

// Sort keys accepted by the list endpoint.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortPriority = "priority"
	SortDeadline = "deadline"
	SortTitle    = "title"
)

// List paging bounds.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// ListQuery selects a page of drafts. Category matches the extracted type.
type ListQuery struct {
	Search   string
	Status   Status
	Priority Priority
	Source   string
	Category Kind
	Sort     string
	Page     int
	Limit    int
}

// Normalize clamps paging and lower-cases enum fields.
func (q ListQuery) Normalize() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Status = Status(strings.ToLower(string(q.Status)))
	q.Priority = Priority(strings.ToLower(string(q.Priority)))
	q.Category = Kind(strings.ToLower(string(q.Category)))
	q.Sort = strings.ToLower(q.Sort)
	switch q.Sort {
	case SortNewest, SortOldest, SortPriority, SortDeadline, SortTitle:
	default:
		q.Sort = SortNewest
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	return q
}

// Offset is the number of rows skipped for Page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Matches reports whether d passes every filter in q.
func (q ListQuery) Matches(d Draft) bool {
	if q.Status != "" && d.Status != q.Status {
		return false
	}
	if q.Priority != "" && d.Priority != q.Priority {
		return false
	}
	if q.Category != "" && d.Type != q.Category {
		return false
	}
	if q.Source != "" && !strings.EqualFold(d.Source, q.Source) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(d.Title), needle) &&
			!strings.Contains(strings.ToLower(d.Description), needle) {
			return false
		}
	}
	return true
}

// ListResult is a page of drafts with counts over every matching draft.
type ListResult struct {
	Items   []Draft
	Total   int
	Pending int
}

// TotalPages returns the page count for limit.
func TotalPages(total, limit int) int {
	if limit < 1 || total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// PriorityRank orders priorities high first.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

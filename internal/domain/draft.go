// Package domain defines drafts, their aggregates and the review service contract.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the review state of a draft.
type Status string

// Draft statuses.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Reviewed reports whether s carries review metadata.
func (s Status) Reviewed() bool {
	return s == StatusApproved || s == StatusRejected
}

// Priority ranks drafts for reviewers.
type Priority string

// Priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ErrInvalidTransition is returned for review actions on drafts that are no
// longer pending.
var ErrInvalidTransition = errors.New("draft is not pending")

// Draft is a machine-extracted opportunity awaiting review.
//
// OpportunityID is set iff Status is approved. ReviewedAt and ReviewedBy are
// set iff Status is approved or rejected.
type Draft struct {
	ID       string   `json:"id"       validate:"required"`
	Status   Status   `json:"status"   validate:"required,oneof=pending approved rejected"`
	Priority Priority `json:"priority" validate:"required,oneof=high medium low"`
	Source   string   `json:"source,omitempty"`
	URL      string   `json:"url,omitempty" validate:"omitempty,url"`

	Extracted

	Feedback      string     `json:"feedback,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy    string     `json:"reviewedBy,omitempty"`
	OpportunityID string     `json:"opportunityId,omitempty"`
	RegeneratedAt *time.Time `json:"regeneratedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Approve moves a pending draft to approved under opportunityID.
func (d *Draft) Approve(reviewer, opportunityID string, at time.Time) error {
	if d.Status != StatusPending {
		return fmt.Errorf("approve %s: %w", d.ID, ErrInvalidTransition)
	}
	d.Status = StatusApproved
	d.OpportunityID = opportunityID
	d.markReviewed(reviewer, at)
	return nil
}

// Reject moves a pending draft to rejected.
func (d *Draft) Reject(reviewer, feedback string, at time.Time) error {
	if d.Status != StatusPending {
		return fmt.Errorf("reject %s: %w", d.ID, ErrInvalidTransition)
	}
	d.Status = StatusRejected
	d.Feedback = strings.TrimSpace(feedback)
	d.markReviewed(reviewer, at)
	return nil
}

// Edit applies normalized edits to a pending draft. Status is unchanged.
func (d *Draft) Edit(e Edits, at time.Time) error {
	if d.Status != StatusPending {
		return fmt.Errorf("edit %s: %w", d.ID, ErrInvalidTransition)
	}
	d.Extracted = e.Normalize().Apply(d.Extracted)
	d.UpdatedAt = at
	return nil
}

func (d *Draft) markReviewed(reviewer string, at time.Time) {
	reviewedAt := at
	d.ReviewedAt = &reviewedAt
	d.ReviewedBy = reviewer
	d.UpdatedAt = at
}

// Stats is the status aggregate. It is sourced from the service, never derived
// from a loaded page of drafts.
type Stats struct {
	Total      int            `json:"total"      validate:"min=0"`
	Pending    int            `json:"pending"    validate:"min=0"`
	Approved   int            `json:"approved"   validate:"min=0"`
	Rejected   int            `json:"rejected"   validate:"min=0"`
	ByPriority PriorityCounts `json:"byPriority"`
}

// PriorityCounts counts drafts per priority.
type PriorityCounts struct {
	High   int `json:"high"   validate:"min=0"`
	Medium int `json:"medium" validate:"min=0"`
	Low    int `json:"low"    validate:"min=0"`
}

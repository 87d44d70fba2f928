package database

import (
	"database/sql"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/lib/pq"
)

const draftColumns = `id, status, priority, source, url,
	extracted_title, extracted_type, extracted_description, extracted_deadline,
	extracted_location, extracted_amount, extracted_link,
	extracted_eligibility, extracted_benefits, extracted_instructions,
	feedback, reviewed_at, reviewed_by, opportunity_id, regenerated_at,
	created_at, updated_at`

// draftRow mirrors the drafts table.
type draftRow struct {
	ID            string         `db:"id"`
	Status        string         `db:"status"`
	Priority      string         `db:"priority"`
	Source        string         `db:"source"`
	URL           string         `db:"url"`
	Title         string         `db:"extracted_title"`
	Type          string         `db:"extracted_type"`
	Description   string         `db:"extracted_description"`
	Deadline      string         `db:"extracted_deadline"`
	Location      string         `db:"extracted_location"`
	Amount        string         `db:"extracted_amount"`
	Link          string         `db:"extracted_link"`
	Eligibility   pq.StringArray `db:"extracted_eligibility"`
	Benefits      pq.StringArray `db:"extracted_benefits"`
	Instructions  pq.StringArray `db:"extracted_instructions"`
	Feedback      string         `db:"feedback"`
	ReviewedAt    sql.NullTime   `db:"reviewed_at"`
	ReviewedBy    sql.NullString `db:"reviewed_by"`
	OpportunityID sql.NullString `db:"opportunity_id"`
	RegeneratedAt sql.NullTime   `db:"regenerated_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func rowFromDraft(d *domain.Draft) draftRow {
	return draftRow{
		ID:            d.ID,
		Status:        string(d.Status),
		Priority:      string(d.Priority),
		Source:        d.Source,
		URL:           d.URL,
		Title:         d.Title,
		Type:          string(d.Type),
		Description:   d.Description,
		Deadline:      d.Deadline,
		Location:      d.Location,
		Amount:        d.Amount,
		Link:          d.Link,
		Eligibility:   nonNil(d.Eligibility),
		Benefits:      nonNil(d.Benefits),
		Instructions:  nonNil(d.Instructions),
		Feedback:      d.Feedback,
		ReviewedAt:    nullTime(d.ReviewedAt),
		ReviewedBy:    nullString(d.ReviewedBy),
		OpportunityID: nullString(d.OpportunityID),
		RegeneratedAt: nullTime(d.RegeneratedAt),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (r draftRow) toDomain() domain.Draft {
	d := domain.Draft{
		ID:       r.ID,
		Status:   domain.Status(r.Status),
		Priority: domain.Priority(r.Priority),
		Source:   r.Source,
		URL:      r.URL,
		Extracted: domain.Extracted{
			Title:        r.Title,
			Type:         domain.Kind(r.Type),
			Description:  r.Description,
			Deadline:     r.Deadline,
			Location:     r.Location,
			Amount:       r.Amount,
			Link:         r.Link,
			Eligibility:  emptyToNil(r.Eligibility),
			Benefits:     emptyToNil(r.Benefits),
			Instructions: emptyToNil(r.Instructions),
		},
		Feedback:      r.Feedback,
		ReviewedBy:    r.ReviewedBy.String,
		OpportunityID: r.OpportunityID.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time.UTC()
		d.ReviewedAt = &t
	}
	if r.RegeneratedAt.Valid {
		t := r.RegeneratedAt.Time.UTC()
		d.RegeneratedAt = &t
	}
	return d
}

func nonNil(items []string) pq.StringArray {
	if items == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(items)
}

func emptyToNil(items pq.StringArray) []string {
	if len(items) == 0 {
		return nil
	}
	return []string(items)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type statsRow struct {
	Total    int `db:"total"`
	Pending  int `db:"pending"`
	Approved int `db:"approved"`
	Rejected int `db:"rejected"`
	High     int `db:"high"`
	Medium   int `db:"medium"`
	Low      int `db:"low"`
}

func (s statsRow) toDomain() domain.Stats {
	return domain.Stats{
		Total:    s.Total,
		Pending:  s.Pending,
		Approved: s.Approved,
		Rejected: s.Rejected,
		ByPriority: domain.PriorityCounts{
			High:   s.High,
			Medium: s.Medium,
			Low:    s.Low,
		},
	}
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresRepository stores drafts in the drafts table.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a repository on db.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var sortClauses = map[string]string{
	domain.SortNewest:   "created_at DESC, id",
	domain.SortOldest:   "created_at ASC, id",
	domain.SortPriority: "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at DESC, id",
	domain.SortDeadline: "NULLIF(extracted_deadline, '') ASC NULLS LAST, id",
	domain.SortTitle:    "LOWER(extracted_title), id",
}

// likeEscaper makes search text match literally, as the memory repository does.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func listFilter(q domain.ListQuery) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.Priority != "" {
		add("priority = $%d", string(q.Priority))
	}
	if q.Category != "" {
		add("extracted_type = $%d", string(q.Category))
	}
	if q.Source != "" {
		add("LOWER(source) = LOWER($%d)", q.Source)
	}
	if q.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(extracted_title ILIKE $%d ESCAPE '\' OR extracted_description ILIKE $%d ESCAPE '\')`, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListDrafts returns one page of drafts plus counts over every match.
func (r *PostgresRepository) ListDrafts(ctx context.Context, q domain.ListQuery) (domain.ListResult, error) {
	q = q.Normalize()
	where, args := listFilter(q)

	var counts struct {
		Total   int `db:"total"`
		Pending int `db:"pending"`
	}
	countQuery := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'pending') AS pending FROM drafts` + where
	if err := r.db.GetContext(ctx, &counts, countQuery, args...); err != nil {
		return domain.ListResult{}, fmt.Errorf("count drafts: %w", err)
	}

	pageArgs := append(slices.Clone(args), q.Limit, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM drafts%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		draftColumns, where, sortClauses[q.Sort], len(args)+1, len(args)+2)

	var rows []draftRow
	if err := r.db.SelectContext(ctx, &rows, query, pageArgs...); err != nil {
		return domain.ListResult{}, fmt.Errorf("select drafts: %w", err)
	}

	items := make([]domain.Draft, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toDomain())
	}

	return domain.ListResult{Items: items, Total: counts.Total, Pending: counts.Pending}, nil
}

// Stats aggregates every draft by status and priority.
func (r *PostgresRepository) Stats(ctx context.Context) (domain.Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*) FILTER (WHERE priority = 'high') AS high,
			COUNT(*) FILTER (WHERE priority = 'medium') AS medium,
			COUNT(*) FILTER (WHERE priority = 'low') AS low
		FROM drafts
	`

	var row statsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return domain.Stats{}, fmt.Errorf("draft stats: %w", err)
	}
	return row.toDomain(), nil
}

// GetDraft returns the draft with id.
func (r *PostgresRepository) GetDraft(ctx context.Context, id string) (*domain.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`

	var row draftRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("draft %s: %w", id, domain.ErrDraftNotFound)
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}

	d := row.toDomain()
	return &d, nil
}

const insertDraft = `
	INSERT INTO drafts (` + draftColumns + `)
	VALUES (:id, :status, :priority, :source, :url,
		:extracted_title, :extracted_type, :extracted_description, :extracted_deadline,
		:extracted_location, :extracted_amount, :extracted_link,
		:extracted_eligibility, :extracted_benefits, :extracted_instructions,
		:feedback, :reviewed_at, :reviewed_by, :opportunity_id, :regenerated_at,
		:created_at, :updated_at)
`

// CreateDraft inserts d.
func (r *PostgresRepository) CreateDraft(ctx context.Context, d *domain.Draft) error {
	if _, err := r.db.NamedExecContext(ctx, insertDraft, rowFromDraft(d)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("draft %s: %w", d.ID, domain.ErrDraftExists)
		}
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

const updateDraft = `
	UPDATE drafts SET
		status = :status,
		priority = :priority,
		source = :source,
		url = :url,
		extracted_title = :extracted_title,
		extracted_type = :extracted_type,
		extracted_description = :extracted_description,
		extracted_deadline = :extracted_deadline,
		extracted_location = :extracted_location,
		extracted_amount = :extracted_amount,
		extracted_link = :extracted_link,
		extracted_eligibility = :extracted_eligibility,
		extracted_benefits = :extracted_benefits,
		extracted_instructions = :extracted_instructions,
		feedback = :feedback,
		reviewed_at = :reviewed_at,
		reviewed_by = :reviewed_by,
		opportunity_id = :opportunity_id,
		regenerated_at = :regenerated_at,
		updated_at = :updated_at
	WHERE id = :id
`

type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

func update(ctx context.Context, ex namedExecer, d *domain.Draft) error {
	result, err := ex.NamedExecContext(ctx, updateDraft, rowFromDraft(d))
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("draft %s: %w", d.ID, domain.ErrDraftNotFound)
	}
	return nil
}

// UpdateDraft overwrites the stored draft with d.
func (r *PostgresRepository) UpdateDraft(ctx context.Context, d *domain.Draft) error {
	return update(ctx, r.db, d)
}

// BulkUpdate locks ids, applies mutate and commits only if every id exists and
// no mutation failed.
func (r *PostgresRepository) BulkUpdate(
	ctx context.Context, ids []string, mutate func(*domain.Draft) error,
) (int, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := sqlx.In(`SELECT `+draftColumns+` FROM drafts WHERE id IN (?) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return 0, fmt.Errorf("build bulk select: %w", err)
	}

	var rows []draftRow
	if err = tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("lock drafts: %w", err)
	}
	if len(rows) != len(ids) {
		return 0, fmt.Errorf("%d of %d drafts: %w", len(ids)-len(rows), len(ids), domain.ErrDraftNotFound)
	}

	changed := 0
	for i := range rows {
		d := rows[i].toDomain()
		if mutErr := mutate(&d); mutErr != nil {
			if errors.Is(mutErr, domain.ErrSkip) {
				continue
			}
			return 0, mutErr
		}
		if err = update(ctx, tx, &d); err != nil {
			return 0, err
		}
		changed++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk update: %w", err)
	}
	return changed, nil
}

// DeleteDraft removes the draft with id.
func (r *PostgresRepository) DeleteDraft(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("draft %s: %w", id, domain.ErrDraftNotFound)
	}
	return nil
}

// DeleteDrafts removes ids and returns how many rows existed.
func (r *PostgresRepository) DeleteDrafts(ctx context.Context, ids []string) (int, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM drafts WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build bulk delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete drafts: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete drafts: %w", err)
	}
	return int(affected), nil
}

// Ping checks the connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func distinct(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

package review

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/metrics"
	"github.com/jonesrussell/north-cloud/draft-review/internal/mutation"
	"github.com/jonesrussell/north-cloud/draft-review/internal/query"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
)

// Query and mutation names, used in logs and metrics.
const (
	NameList       = "drafts.list"
	NameStats      = "drafts.stats"
	NameDetail     = "drafts.detail"
	NameApprove    = "drafts.approve"
	NameReject     = "drafts.reject"
	NameEdit       = "drafts.edit"
	NameRegenerate = "drafts.regenerate"
	NameDelete     = "drafts.delete"
	NameBulkReview = "drafts.bulk_review"
	NameBulkDelete = "drafts.bulk_delete"
)

// Queries are the console's read-side sub-states.
type Queries struct {
	List  *query.Query[filter.Filters, domain.ListResponse]
	Stats *query.Query[struct{}, domain.Stats]
}

// Mutations are the console's write-side sub-states. Each has its own
// loading flag so approve and reject can be observed independently.
type Mutations struct {
	Approve    *mutation.Mutation[string, domain.ReviewResponse]
	Reject     *mutation.Mutation[RejectInput, domain.ReviewResponse]
	Edit       *mutation.Mutation[EditInput, domain.ReviewResponse]
	Regenerate *mutation.Mutation[string, domain.RegenerateResponse]
	Delete     *mutation.Mutation[string, domain.DeleteResponse]
	BulkReview *mutation.Mutation[domain.BulkReviewRequest, domain.BulkReviewResponse]
	BulkDelete *mutation.Mutation[[]string, domain.BulkDeleteResponse]
}

// Option configures a Console.
type Option func(*Console)

// WithRefetchMode sets the order of reads after a write. Defaults to sequential.
func WithRefetchMode(m RefetchMode) Option {
	return func(c *Console) { c.mode = m }
}

// WithSession gates immediate queries on authentication.
func WithSession(s session.State) Option {
	return func(c *Console) { c.session = s }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Console) { c.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *Console) { c.metrics = m }
}

// WithDefaultLimit sets the page size restored by ResetFilters.
func WithDefaultLimit(n int) Option {
	return func(c *Console) { c.limit = n }
}

// Console aggregates the review workflow for one operator.
//
// Writes never touch list or stats state directly; those change only through
// the refetch that follows a successful write.
type Console struct {
	backend Backend
	mode    RefetchMode
	session session.State
	log     logger.Logger
	metrics *metrics.Recorder
	limit   int

	filters   *filter.Controller
	queries   Queries
	mutations Mutations

	mu       sync.Mutex
	selected string
	editors  map[string]*Editor

	subs *subscribers
}

// NewConsole wires the queries and mutations against backend.
func NewConsole(backend Backend, opts ...Option) *Console {
	c := &Console{
		backend: backend,
		mode:    RefetchSequential,
		editors: make(map[string]*Editor),
		subs:    newSubscribers(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}

	c.filters = filter.NewController(c.limit)
	c.queries = Queries{
		List: query.New(NameList, backend.ListDrafts, c.queryOptions()...),
		Stats: query.New(NameStats, func(ctx context.Context, _ struct{}) (domain.Stats, error) {
			return backend.DraftStats(ctx)
		}, c.queryOptions()...),
	}
	c.mutations = c.buildMutations()
	c.watchState()

	return c
}

func (c *Console) queryOptions() []query.Option {
	return []query.Option{
		query.WithSession(c.session),
		query.WithLogger(c.log),
		query.WithMetrics(c.metrics),
	}
}

func mutationOptions[In any](c *Console, validate func(In) error) []mutation.Option[In] {
	return []mutation.Option[In]{
		mutation.WithValidate(validate),
		mutation.WithLogger[In](c.log),
		mutation.WithMetrics[In](c.metrics),
	}
}

func (c *Console) buildMutations() Mutations {
	b := c.backend

	return Mutations{
		Approve: mutation.New(NameApprove, func(ctx context.Context, id string) (domain.ReviewResponse, error) {
			return b.ReviewDraft(ctx, id, domain.ReviewRequest{Action: domain.ActionApprove})
		}, mutationOptions(c, domain.ValidateID)...),

		Reject: mutation.New(NameReject, func(ctx context.Context, in RejectInput) (domain.ReviewResponse, error) {
			return b.ReviewDraft(ctx, in.ID, domain.ReviewRequest{Action: domain.ActionReject, Feedback: in.Feedback})
		}, mutationOptions(c, func(in RejectInput) error { return domain.ValidateID(in.ID) })...),

		Edit: mutation.New(NameEdit, func(ctx context.Context, in EditInput) (domain.ReviewResponse, error) {
			edits := in.Edits
			return b.ReviewDraft(ctx, in.ID, domain.ReviewRequest{Action: domain.ActionEdit, Edits: &edits})
		}, mutationOptions(c, func(in EditInput) error {
			edits := in.Edits
			return domain.ValidateReviewRequest(in.ID, domain.ReviewRequest{Action: domain.ActionEdit, Edits: &edits})
		})...),

		Regenerate: mutation.New(NameRegenerate, b.RegenerateDraft, mutationOptions(c, domain.ValidateID)...),

		Delete: mutation.New(NameDelete, b.DeleteDraft, mutationOptions(c, domain.ValidateID)...),

		BulkReview: mutation.New(NameBulkReview, b.BulkReview, mutationOptions(c, validateBulkReview)...),

		BulkDelete: mutation.New(NameBulkDelete, func(ctx context.Context, ids []string) (domain.BulkDeleteResponse, error) {
			return b.BulkDelete(ctx, domain.BulkDeleteRequest{IDs: ids})
		}, mutationOptions(c, validateIDs)...),
	}
}

func validateIDs(ids []string) error {
	for _, id := range ids {
		if err := domain.ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

func validateBulkReview(req domain.BulkReviewRequest) error {
	if err := domain.ValidateBulkAction(req.Action); err != nil {
		return err
	}
	return validateIDs(req.IDs)
}

// Queries returns the read-side sub-states.
func (c *Console) Queries() Queries { return c.queries }

// Mutations returns the write-side sub-states.
func (c *Console) Mutations() Mutations { return c.mutations }

// Filters returns the current filters.
func (c *Console) Filters() filter.Filters { return c.filters.Current() }

// Load issues the list with the current filters and the stats.
func (c *Console) Load(ctx context.Context) error {
	return c.mode.run(ctx, c.syncList, c.syncStats)
}

// UpdateFilters merges patch and re-issues the list if the filters changed.
func (c *Console) UpdateFilters(ctx context.Context, patch filter.Patch) (filter.Filters, error) {
	f := c.filters.Update(patch)
	return f, settled(c.syncList(ctx))
}

// ResetFilters restores the default filters and re-issues the list if needed.
func (c *Console) ResetFilters(ctx context.Context) (filter.Filters, error) {
	f := c.filters.Reset()
	return f, settled(c.syncList(ctx))
}

func (c *Console) syncList(ctx context.Context) error {
	issued, err := c.queries.List.SetDependencies(ctx, c.filters.Current())
	if err != nil || !issued {
		return err
	}
	return c.clampPage(ctx)
}

func (c *Console) syncStats(ctx context.Context) error {
	_, err := c.queries.Stats.SetDependencies(ctx, struct{}{})
	return err
}

func (c *Console) refetchList(ctx context.Context) error {
	if _, err := c.queries.List.Refetch(ctx); err != nil {
		return err
	}
	return c.clampPage(ctx)
}

func (c *Console) refetchStats(ctx context.Context) error {
	_, err := c.queries.Stats.Refetch(ctx)
	return err
}

// clampPage pulls the page back inside the known page count and re-issues the
// list once if it moved.
func (c *Console) clampPage(ctx context.Context) error {
	snap := c.queries.List.Snapshot()
	if !snap.Succeeded() {
		return nil
	}

	f, changed := c.filters.ClampPage(snap.Value.TotalPages)
	if !changed {
		return nil
	}

	c.log.Debug("List page clamped", logger.Int("page", f.Page), logger.Int("total_pages", snap.Value.TotalPages))
	_, err := c.queries.List.SetDependencies(ctx, f)
	return err
}

// RefreshAfterStatusChange refetches the list and the stats. Both always run.
func (c *Console) RefreshAfterStatusChange(ctx context.Context) error {
	return c.mode.run(ctx, c.refetchList, c.refetchStats)
}

func (c *Console) afterWrite(ctx context.Context, action string, steps ...step) error {
	if err := c.mode.run(ctx, steps...); err != nil {
		c.log.Warn("Refetch after write failed", logger.String("action", action), logger.Error(err))
		return &RefetchError{Action: action, Err: err}
	}
	return nil
}

// statusSteps are the reads refreshed after any status change: list and stats,
// plus the detail of an open editor for id.
func (c *Console) statusSteps(ids ...string) []step {
	steps := []step{c.refetchList, c.refetchStats}
	for _, id := range ids {
		if e := c.editor(id); e != nil {
			steps = append(steps, e.refetch)
		}
	}
	return steps
}

// Approve approves a draft, then refetches list and stats.
func (c *Console) Approve(ctx context.Context, id string) (domain.ReviewResponse, error) {
	out, err := c.mutations.Approve.Mutate(ctx, id)
	if err != nil {
		return out, err
	}
	return out, c.afterWrite(ctx, "approve", c.statusSteps(id)...)
}

// Reject rejects a draft with feedback, then refetches list and stats.
func (c *Console) Reject(ctx context.Context, id, feedback string) (domain.ReviewResponse, error) {
	out, err := c.mutations.Reject.Mutate(ctx, RejectInput{ID: id, Feedback: feedback})
	if err != nil {
		return out, err
	}
	return out, c.afterWrite(ctx, "reject", c.statusSteps(id)...)
}

// Edit saves extracted-field edits, then refetches the list and the draft's
// detail when an editor is open for it.
func (c *Console) Edit(ctx context.Context, id string, edits domain.Edits) (domain.ReviewResponse, error) {
	out, err := c.mutations.Edit.Mutate(ctx, EditInput{ID: id, Edits: edits})
	if err != nil {
		return out, err
	}

	steps := []step{c.refetchList}
	if e := c.editor(id); e != nil {
		steps = append(steps, e.refetch)
	}
	return out, c.afterWrite(ctx, "edit", steps...)
}

// Regenerate re-runs extraction for a draft, then refetches only its detail.
func (c *Console) Regenerate(ctx context.Context, id string) (domain.RegenerateResponse, error) {
	out, err := c.mutations.Regenerate.Mutate(ctx, id)
	if err != nil {
		return out, err
	}

	if e := c.editor(id); e != nil {
		return out, c.afterWrite(ctx, "regenerate", e.refetch)
	}
	return out, nil
}

// Delete removes a draft, closes its editor, then refetches list and stats.
func (c *Console) Delete(ctx context.Context, id string) (domain.DeleteResponse, error) {
	out, err := c.mutations.Delete.Mutate(ctx, id)
	if err != nil {
		return out, err
	}

	c.closeEditor(id)
	return out, c.afterWrite(ctx, "delete", c.statusSteps()...)
}

// BulkReview approves or rejects ids in a single call and returns the number
// processed. An empty ids is a no-op.
func (c *Console) BulkReview(ctx context.Context, ids []string, action domain.ReviewAction) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	out, err := c.mutations.BulkReview.Mutate(ctx, domain.BulkReviewRequest{IDs: ids, Action: action})
	if err != nil {
		return 0, err
	}
	return out.Processed, c.afterWrite(ctx, "bulk review", c.statusSteps(ids...)...)
}

// BulkDelete removes ids in a single call and returns the number deleted. An
// empty ids is a no-op.
func (c *Console) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	out, err := c.mutations.BulkDelete.Mutate(ctx, ids)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		c.closeEditor(id)
	}
	return out.Deleted, c.afterWrite(ctx, "bulk delete", c.statusSteps()...)
}

// Select points the selection at id. The console never changes it on its own.
func (c *Console) Select(id string) {
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
	c.notify()
}

// Selected returns the selected draft id.
func (c *Console) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// ClearSelection clears the selection.
func (c *Console) ClearSelection() { c.Select("") }

// ListContains reports whether id is on the committed list page.
func (c *Console) ListContains(id string) bool {
	snap := c.queries.List.Snapshot()
	return snap.Succeeded() && snap.Value.Contains(id)
}

// InvalidateAll drops every cached read, including open editors' details.
func (c *Console) InvalidateAll() {
	c.queries.List.Invalidate()
	c.queries.Stats.Invalidate()

	c.mu.Lock()
	editors := make([]*Editor, 0, len(c.editors))
	for _, e := range c.editors {
		editors = append(editors, e)
	}
	c.mu.Unlock()

	for _, e := range editors {
		e.detail.Invalidate()
	}
}

// WatchSession invalidates all reads whenever guard signals expiry. The
// subscription is live when WatchSession returns; stop ends it.
func (c *Console) WatchSession(ctx context.Context, guard *session.Guard) (stop func()) {
	signals, cancel := guard.Subscribe()
	ctx, cancelCtx := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				c.log.Info("Session expired, invalidating queries", logger.String("reason", sig.Reason))
				c.InvalidateAll()
			}
		}
	}()

	return func() {
		cancelCtx()
		cancel()
		wg.Wait()
	}
}

// Open returns the editor for id, creating it and issuing its detail query.
func (c *Console) Open(ctx context.Context, id string) (*Editor, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, ok := c.editors[id]
	if !ok {
		e = newEditor(c, id)
		c.editors[id] = e
	}
	c.mu.Unlock()

	_, err := e.detail.SetDependencies(ctx, id)
	return e, settled(err)
}

func (c *Console) editor(id string) *Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editors[id]
}

func (c *Console) closeEditor(id string) {
	c.mu.Lock()
	e, ok := c.editors[id]
	delete(c.editors, id)
	c.mu.Unlock()

	if ok {
		e.stopWatching()
	}
}

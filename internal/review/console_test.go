package review_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/review"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedConsole(t *testing.T, backend *fakeBackend, patch filter.Patch, opts ...review.Option) *review.Console {
	t.Helper()

	c := review.NewConsole(backend, opts...)
	if !patch.Empty() {
		_, err := c.UpdateFilters(context.Background(), patch)
		require.NoError(t, err)
	}
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestConsole_ApproveScenario(t *testing.T) {
	t.Parallel()

	for _, mode := range []review.RefetchMode{review.RefetchSequential, review.RefetchParallel} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			backend := newFakeBackend(scenarioDrafts()...)
			c := loadedConsole(t, backend, filter.Patch{Status: filter.Str("pending")}, review.WithRefetchMode(mode))
			ctx := context.Background()

			stats := c.Queries().Stats.Snapshot().Value
			require.Equal(t, domain.Stats{
				Total: 10, Pending: 4, Approved: 5, Rejected: 1,
				ByPriority: domain.PriorityCounts{High: 3, Medium: 3, Low: 4},
			}, stats)
			require.True(t, c.ListContains("D7"))

			ed, err := c.Open(ctx, "D7")
			require.NoError(t, err)

			resp, err := ed.Approve(ctx)
			require.NoError(t, err)
			require.NotNil(t, resp.Opportunity)

			d, ok := ed.Draft()
			require.True(t, ok)
			assert.Equal(t, domain.StatusApproved, d.Status)
			assert.NotEmpty(t, d.OpportunityID)
			assert.Equal(t, resp.Opportunity.ID, d.OpportunityID)

			stats = c.Queries().Stats.Snapshot().Value
			assert.Equal(t, 3, stats.Pending)
			assert.Equal(t, 6, stats.Approved)
			assert.Equal(t, 1, stats.Rejected)
			assert.Equal(t, 10, stats.Total)

			assert.False(t, c.ListContains("D7"), "approved draft leaves the pending list")
			assert.Equal(t, 3, c.Queries().List.Snapshot().Value.Total)
		})
	}
}

func TestConsole_ApproveAlwaysRefetchesListAndStats(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})
	lists, stats := backend.count("list"), backend.count("stats")

	_, err := c.Approve(context.Background(), "D3")
	require.NoError(t, err)

	assert.Equal(t, lists+1, backend.count("list"))
	assert.Equal(t, stats+1, backend.count("stats"))
}

func TestConsole_FailedRejectLeavesListUntouched(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{Status: filter.Str("pending")})

	before, err := json.Marshal(c.Queries().List.Snapshot())
	require.NoError(t, err)
	statsBefore := c.Queries().Stats.Snapshot()
	lists := backend.count("list")

	backend.failWith("review", &apperrors.TransportError{Op: "review draft", Err: errors.New("connection reset")})

	_, err = c.Reject(context.Background(), "D7", "not a real opportunity")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))

	after, err := json.Marshal(c.Queries().List.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, statsBefore, c.Queries().Stats.Snapshot())
	assert.Equal(t, lists, backend.count("list"), "no refetch after a failed write")

	snap := c.Snapshot()
	assert.True(t, snap.Reject.Failed())
	assert.True(t, apperrors.IsTransport(snap.Reject.Err))
	assert.True(t, snap.Approve.Idle(), "approve state is independent")
}

func TestConsole_EmptyBulkIsNoop(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})

	updates, cancel := c.Subscribe()
	defer cancel()

	for _, ids := range [][]string{nil, {}} {
		n, err := c.BulkDelete(context.Background(), ids)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = c.BulkReview(context.Background(), ids, domain.ActionApprove)
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	assert.Zero(t, backend.count("bulk-delete"))
	assert.Zero(t, backend.count("bulk-review"))
	assert.True(t, c.Mutations().BulkDelete.Snapshot().Idle())
	assert.True(t, c.Mutations().BulkReview.Snapshot().Idle())

	select {
	case snap := <-updates:
		t.Fatalf("no state change expected, got %+v", snap.BulkDelete)
	default:
	}
}

func TestConsole_BulkActions(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})
	ctx := context.Background()

	n, err := c.BulkReview(ctx, []string{"D3", "D6", "D1"}, domain.ActionReject)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "already approved D1 is not processed")
	assert.Equal(t, 3, c.Queries().Stats.Snapshot().Value.Rejected)
	assert.Equal(t, 1, backend.count("bulk-review"), "one call for the whole batch")

	n, err = c.BulkDelete(ctx, []string{"D3", "D6"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 8, c.Queries().Stats.Snapshot().Value.Total)
	assert.False(t, c.ListContains("D3"))

	_, err = c.BulkReview(ctx, []string{"D7"}, domain.ActionEdit)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.True(t, c.Mutations().BulkReview.Snapshot().Failed())
}

func TestConsole_UpdateFiltersResetsPage(t *testing.T) {
	t.Parallel()

	var drafts []domain.Draft
	for i := range 35 {
		drafts = append(drafts, draft(string(rune('a'+i%26))+string(rune('0'+i/26)), domain.StatusPending, domain.PriorityLow))
	}
	backend := newFakeBackend(drafts...)
	c := loadedConsole(t, backend, filter.Patch{})
	ctx := context.Background()

	f, err := c.UpdateFilters(ctx, filter.Patch{Page: filter.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 3, c.Queries().List.Snapshot().Value.Page)

	f, err = c.UpdateFilters(ctx, filter.Patch{Priority: filter.Str("low")})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 1, c.Queries().List.Snapshot().Value.Page)

	lists := backend.count("list")
	_, err = c.UpdateFilters(ctx, filter.Patch{Priority: filter.Str("low")})
	require.NoError(t, err)
	assert.Equal(t, lists, backend.count("list"), "identical filters do not re-issue")

	f, err = c.ResetFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, filter.Filters{Page: 1, Limit: 10}, f)
}

func TestConsole_ClampsPageAfterList(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{}, review.WithDefaultLimit(4))
	ctx := context.Background()

	_, err := c.UpdateFilters(ctx, filter.Patch{Page: filter.Int(9)})
	require.NoError(t, err)

	assert.Equal(t, 3, c.Filters().Page)
	snap := c.Queries().List.Snapshot()
	require.True(t, snap.Succeeded())
	assert.Equal(t, 3, snap.Value.Page)
	assert.Len(t, snap.Value.Items, 2)
}

func TestConsole_RegenerateRefetchesDetailOnly(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})
	ctx := context.Background()

	ed, err := c.Open(ctx, "D7")
	require.NoError(t, err)
	lists, stats, gets := backend.count("list"), backend.count("stats"), backend.count("get")

	_, err = ed.Regenerate(ctx)
	require.NoError(t, err)

	assert.Equal(t, lists, backend.count("list"))
	assert.Equal(t, stats, backend.count("stats"))
	assert.Equal(t, gets+1, backend.count("get"))

	d, ok := ed.Draft()
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, d.Status)
	assert.NotNil(t, d.RegeneratedAt)
}

func TestConsole_DeleteKeepsSelectionWithCaller(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})
	ctx := context.Background()

	c.Select("D7")
	_, err := c.Open(ctx, "D7")
	require.NoError(t, err)

	_, err = c.Delete(ctx, "D7")
	require.NoError(t, err)

	assert.Equal(t, "D7", c.Selected(), "selection is the caller's to change")
	assert.False(t, c.ListContains("D7"))
	assert.Equal(t, 9, c.Queries().Stats.Snapshot().Value.Total)

	c.ClearSelection()
	assert.Empty(t, c.Selected())
}

func TestConsole_ValidationBeforeDispatch(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})

	_, err := c.Approve(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Zero(t, backend.count("review"))
	assert.True(t, c.Mutations().Approve.Snapshot().Failed())
}

func TestConsole_IndependentLoadingFlags(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})

	entered := make(chan struct{})
	release := make(chan struct{})
	backend.hook("review", func() {
		close(entered)
		<-release
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Approve(context.Background(), "D7")
		done <- err
	}()
	<-entered

	snap := c.Snapshot()
	assert.True(t, snap.Approve.Loading())
	assert.True(t, snap.Reject.Idle())
	assert.True(t, snap.Busy())

	close(release)
	require.NoError(t, <-done)
	assert.True(t, c.Snapshot().Approve.Succeeded())
}

func TestConsole_RefetchFailureAfterSuccessfulWrite(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})

	backend.failWith("stats", &apperrors.ServiceError{StatusCode: 503, Message: "stats unavailable"})

	_, err := c.Approve(context.Background(), "D7")
	var refetchErr *review.RefetchError
	require.ErrorAs(t, err, &refetchErr)
	assert.Equal(t, "approve", refetchErr.Action)

	snap := c.Snapshot()
	assert.True(t, snap.Approve.Succeeded())
	assert.True(t, snap.List.Succeeded(), "list refetch still ran")
	assert.True(t, snap.Stats.Failed())
	assert.Zero(t, snap.Stats.Value, "failed read clears stale stats")
}

func TestConsole_WatchSessionInvalidates(t *testing.T) {
	t.Parallel()

	guard := session.NewGuard(true)
	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{}, review.WithSession(guard))
	ed, err := c.Open(context.Background(), "D7")
	require.NoError(t, err)

	stop := c.WatchSession(context.Background(), guard)
	defer stop()

	guard.Expire("token expired")

	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.List.Idle() && s.Stats.Idle() && ed.Detail().Snapshot().Idle()
	}, time.Second, 5*time.Millisecond)

	lists := backend.count("list")
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, lists, backend.count("list"), "no immediate queries while expired")

	guard.Authenticate()
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, lists+1, backend.count("list"))
	assert.True(t, c.Snapshot().Stats.Succeeded())
}

func TestConsole_SubscribeDeliversLatest(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := review.NewConsole(backend)

	updates, cancel := c.Subscribe()
	require.NoError(t, c.Load(context.Background()))

	snap := <-updates
	assert.True(t, snap.Stats.Succeeded())
	assert.Equal(t, 10, snap.Stats.Value.Total)

	cancel()
	_, ok := <-updates
	assert.False(t, ok)
}

package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jonesrussell/north-cloud/draft-review/internal/apperrors"
	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEditor(t *testing.T, backend *fakeBackend, id string) (*review.Console, *review.Editor) {
	t.Helper()

	c := loadedConsole(t, backend, filter.Patch{})
	ed, err := c.Open(context.Background(), id)
	require.NoError(t, err)
	return c, ed
}

func TestEditor_EditRoundTrip(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	_, ed := openEditor(t, backend, "D7")
	ctx := context.Background()
	lists, stats := backend.count("list"), backend.count("stats")

	require.NoError(t, ed.StartEdit())
	assert.True(t, ed.Editing())

	title := "  New  "
	d, err := ed.SaveEdit(ctx, domain.Edits{Title: &title})
	require.NoError(t, err)

	assert.False(t, ed.Editing())
	assert.Equal(t, "New", d.Title, "server-normalized value, not the local edit")
	assert.Equal(t, "New", ed.Fields().Title)
	assert.Equal(t, domain.StatusPending, d.Status)

	assert.Equal(t, lists+1, backend.count("list"), "edit refetches the list")
	assert.Equal(t, stats, backend.count("stats"), "edit does not change status counts")

	require.NoError(t, ed.StartEdit())
	assert.Equal(t, "New", ed.Fields().Title, "second edit snapshots the committed value")
	assert.True(t, ed.Pending().Empty())
}

func TestEditor_WorkingCopyAndCancel(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	_, ed := openEditor(t, backend, "D3")

	assert.ErrorIs(t, ed.SetField(domain.FieldTitle, "x"), review.ErrNotEditing)

	require.NoError(t, ed.StartEdit())
	require.NoError(t, ed.SetField(domain.FieldTitle, "Draft title"))
	require.NoError(t, ed.SetField(domain.FieldEligibility, "students\nresearchers"))
	assert.Error(t, ed.SetField(domain.FieldType, "raffle"))

	assert.Equal(t, "Draft title", ed.Fields().Title)
	pending := ed.Pending()
	require.NotNil(t, pending.Title)
	require.NotNil(t, pending.Eligibility)
	assert.Equal(t, []string{"students", "researchers"}, *pending.Eligibility)
	assert.Nil(t, pending.Description)

	ed.CancelEdit()
	assert.False(t, ed.Editing())
	assert.Equal(t, "Opportunity D3", ed.Fields().Title)
	assert.Zero(t, backend.count("review"))
}

func TestEditor_SaveEditSendsPendingChanges(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	_, ed := openEditor(t, backend, "D6")

	require.NoError(t, ed.StartEdit())
	require.NoError(t, ed.SetField(domain.FieldAmount, " $5,000 "))

	d, err := ed.SaveEdit(context.Background(), domain.Edits{})
	require.NoError(t, err)
	assert.Equal(t, "$5,000", d.Amount)
	assert.Equal(t, "Opportunity D6", d.Title)
}

func TestEditor_SaveEditFailureKeepsEditing(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	_, ed := openEditor(t, backend, "D7")

	require.NoError(t, ed.StartEdit())
	require.NoError(t, ed.SetField(domain.FieldTitle, "Unsaved"))

	backend.failWith("review", &apperrors.TransportError{Op: "review draft", Err: errors.New("timeout")})
	_, err := ed.SaveEdit(context.Background(), domain.Edits{})
	require.Error(t, err)

	assert.True(t, ed.Editing())
	assert.Equal(t, "Unsaved", ed.Fields().Title)
	d, _ := ed.Draft()
	assert.Equal(t, "Opportunity D7", d.Title)
}

func TestEditor_SaveEditRequiresEditMode(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	_, ed := openEditor(t, backend, "D7")

	_, err := ed.SaveEdit(context.Background(), domain.Edits{})
	assert.ErrorIs(t, err, review.ErrNotEditing)
}

func TestEditor_ClosedEditorSendsNothing(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c, ed := openEditor(t, backend, "D7")

	require.NoError(t, ed.StartEdit())
	require.NoError(t, ed.SetField(domain.FieldTitle, "Lost"))
	ed.Close()

	assert.False(t, ed.Editing())
	_, err := ed.SaveEdit(context.Background(), domain.Edits{})
	require.ErrorIs(t, err, review.ErrEditorClosed)
	assert.ErrorIs(t, ed.StartEdit(), review.ErrEditorClosed)
	assert.Zero(t, backend.count("review"), "closed editor must not send the edit")

	reopened, err := c.Open(context.Background(), "D7")
	require.NoError(t, err)
	require.NoError(t, reopened.StartEdit())
	title := "Kept"
	d, err := reopened.SaveEdit(context.Background(), domain.Edits{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Kept", d.Title, "a fresh editor returns the server-confirmed value")
}

func TestEditor_RejectEndsEditing(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c, ed := openEditor(t, backend, "D10")

	require.NoError(t, ed.StartEdit())
	_, err := ed.Reject(context.Background(), "duplicate listing")
	require.NoError(t, err)

	assert.False(t, ed.Editing())
	d, _ := ed.Draft()
	assert.Equal(t, domain.StatusRejected, d.Status)
	assert.Equal(t, "duplicate listing", d.Feedback)
	assert.Empty(t, d.OpportunityID)
	assert.Equal(t, 2, c.Queries().Stats.Snapshot().Value.Rejected)

	_, err = ed.Approve(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err), "lifecycle is monotonic")
}

func TestEditor_StartEditNeedsLoadedDraft(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(scenarioDrafts()...)
	c := loadedConsole(t, backend, filter.Patch{})

	ed, err := c.Open(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.ErrorIs(t, ed.StartEdit(), review.ErrNotLoaded)

	_, err = c.Open(context.Background(), " ")
	assert.True(t, apperrors.IsValidation(err))
}

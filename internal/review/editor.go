package review

import (
	"context"
	"errors"
	"sync"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/query"
	"github.com/jonesrussell/north-cloud/draft-review/internal/requeststate"
)

var (
	// ErrNotEditing is returned when fields are changed outside edit mode.
	ErrNotEditing = errors.New("draft is not in edit mode")
	// ErrNotLoaded is returned when edit mode is entered before the draft loaded.
	ErrNotLoaded = errors.New("draft detail is not loaded")
	// ErrEditorClosed is returned by edit operations after Close or after the
	// draft was deleted; open a new editor with Console.Open.
	ErrEditorClosed = errors.New("editor is closed")
)

// Editor is the per-draft state machine. Editing is a local flag orthogonal to
// the draft's status; it only gates whether the working copy may change.
type Editor struct {
	console *Console
	id      string
	detail  *query.Query[string, domain.Draft]
	unwatch func()

	mu       sync.Mutex
	closed   bool
	editing  bool
	snapshot domain.Extracted
	working  domain.Extracted
}

func newEditor(c *Console, id string) *Editor {
	e := &Editor{console: c, id: id}
	e.detail = query.New(NameDetail, c.backend.GetDraft, c.queryOptions()...)
	e.unwatch = e.detail.OnChange(func(requeststate.Snapshot[domain.Draft]) { c.notify() })
	return e
}

// ID returns the draft id.
func (e *Editor) ID() string { return e.id }

// Detail returns the detail query.
func (e *Editor) Detail() *query.Query[string, domain.Draft] { return e.detail }

// Draft returns the committed server copy.
func (e *Editor) Draft() (domain.Draft, bool) {
	snap := e.detail.Snapshot()
	return snap.Value, snap.Succeeded()
}

// Editing reports whether edit mode is on.
func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Fields returns the working copy while editing, otherwise the committed fields.
func (e *Editor) Fields() domain.Extracted {
	e.mu.Lock()
	if e.editing {
		defer e.mu.Unlock()
		return e.working.Clone()
	}
	e.mu.Unlock()

	d, _ := e.Draft()
	return d.Extracted.Clone()
}

// StartEdit turns edit mode on and snapshots the committed fields.
func (e *Editor) StartEdit() error {
	d, ok := e.Draft()
	if !ok {
		return ErrNotLoaded
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEditorClosed
	}
	e.editing = true
	e.snapshot = d.Extracted.Clone()
	e.working = d.Extracted.Clone()
	return nil
}

// SetField changes one field of the working copy.
func (e *Editor) SetField(field, value string) error {
	var edits domain.Edits
	if err := edits.Set(field, value); err != nil {
		return err
	}
	return e.Set(edits)
}

// Set applies edits to the working copy.
func (e *Editor) Set(edits domain.Edits) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return ErrNotEditing
	}
	e.working = edits.Apply(e.working)
	return nil
}

// Pending returns the difference between the snapshot and the working copy.
func (e *Editor) Pending() domain.Edits {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.editing {
		return domain.Edits{}
	}
	return domain.Diff(e.snapshot, e.working)
}

// CancelEdit leaves edit mode and discards the working copy.
func (e *Editor) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.editing = false
	e.working = e.snapshot.Clone()
}

// SaveEdit sends edits, or the pending working-copy changes when edits is
// empty. On success edit mode ends and Fields reflects the server's copy.
// A closed editor sends nothing.
func (e *Editor) SaveEdit(ctx context.Context, edits domain.Edits) (domain.Draft, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.Draft{}, ErrEditorClosed
	}
	if !e.editing {
		e.mu.Unlock()
		return domain.Draft{}, ErrNotEditing
	}
	if edits.Empty() {
		edits = domain.Diff(e.snapshot, e.working)
	}
	e.mu.Unlock()

	_, err := e.console.Edit(ctx, e.id, edits)
	if err != nil && !isRefetch(err) {
		return domain.Draft{}, err
	}

	e.endEdit()
	if err != nil {
		return domain.Draft{}, err
	}

	d, _ := e.Draft()
	return d, nil
}

// Approve approves this draft and leaves edit mode.
func (e *Editor) Approve(ctx context.Context) (domain.ReviewResponse, error) {
	out, err := e.console.Approve(ctx, e.id)
	if err == nil || isRefetch(err) {
		e.endEdit()
	}
	return out, err
}

// Reject rejects this draft with feedback and leaves edit mode.
func (e *Editor) Reject(ctx context.Context, feedback string) (domain.ReviewResponse, error) {
	out, err := e.console.Reject(ctx, e.id, feedback)
	if err == nil || isRefetch(err) {
		e.endEdit()
	}
	return out, err
}

// Regenerate re-runs extraction for this draft and refetches its detail.
func (e *Editor) Regenerate(ctx context.Context) (domain.RegenerateResponse, error) {
	return e.console.Regenerate(ctx, e.id)
}

// Close detaches the editor from the console.
func (e *Editor) Close() {
	e.console.closeEditor(e.id)
}

func (e *Editor) endEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.editing = false
	e.snapshot = domain.Extracted{}
	e.working = domain.Extracted{}
}

func (e *Editor) refetch(ctx context.Context) error {
	_, err := e.detail.Refetch(ctx)
	return err
}

func (e *Editor) stopWatching() {
	e.mu.Lock()
	e.closed = true
	e.editing = false
	e.mu.Unlock()

	e.unwatch()
}

func isRefetch(err error) bool {
	var refetchErr *RefetchError
	return errors.As(err, &refetchErr)
}

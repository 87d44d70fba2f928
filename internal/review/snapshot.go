package review

import (
	"sync"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/requeststate"
)

// ConsoleSnapshot is everything a presentation layer needs to render the console.
type ConsoleSnapshot struct {
	Filters  filter.Filters
	Selected string

	List  requeststate.Snapshot[domain.ListResponse]
	Stats requeststate.Snapshot[domain.Stats]

	Approve    requeststate.Snapshot[domain.ReviewResponse]
	Reject     requeststate.Snapshot[domain.ReviewResponse]
	Edit       requeststate.Snapshot[domain.ReviewResponse]
	Regenerate requeststate.Snapshot[domain.RegenerateResponse]
	Delete     requeststate.Snapshot[domain.DeleteResponse]
	BulkReview requeststate.Snapshot[domain.BulkReviewResponse]
	BulkDelete requeststate.Snapshot[domain.BulkDeleteResponse]
}

// Busy reports whether any read or write is in flight.
func (s ConsoleSnapshot) Busy() bool {
	return s.List.Loading() || s.Stats.Loading() || s.Approve.Loading() || s.Reject.Loading() ||
		s.Edit.Loading() || s.Regenerate.Loading() || s.Delete.Loading() ||
		s.BulkReview.Loading() || s.BulkDelete.Loading()
}

// Snapshot returns the current console state.
func (c *Console) Snapshot() ConsoleSnapshot {
	m := c.mutations
	return ConsoleSnapshot{
		Filters:    c.filters.Current(),
		Selected:   c.Selected(),
		List:       c.queries.List.Snapshot(),
		Stats:      c.queries.Stats.Snapshot(),
		Approve:    m.Approve.Snapshot(),
		Reject:     m.Reject.Snapshot(),
		Edit:       m.Edit.Snapshot(),
		Regenerate: m.Regenerate.Snapshot(),
		Delete:     m.Delete.Snapshot(),
		BulkReview: m.BulkReview.Snapshot(),
		BulkDelete: m.BulkDelete.Snapshot(),
	}
}

// Subscribe delivers a fresh snapshot after every state change. Slow readers
// see only the latest snapshot. cancel closes the channel.
func (c *Console) Subscribe() (<-chan ConsoleSnapshot, func()) {
	return c.subs.add()
}

func (c *Console) notify() {
	if c.subs.empty() {
		return
	}
	c.subs.publish(c.Snapshot())
}

func (c *Console) watchState() {
	q, m := c.queries, c.mutations
	q.List.OnChange(func(requeststate.Snapshot[domain.ListResponse]) { c.notify() })
	q.Stats.OnChange(func(requeststate.Snapshot[domain.Stats]) { c.notify() })
	m.Approve.OnChange(func(requeststate.Snapshot[domain.ReviewResponse]) { c.notify() })
	m.Reject.OnChange(func(requeststate.Snapshot[domain.ReviewResponse]) { c.notify() })
	m.Edit.OnChange(func(requeststate.Snapshot[domain.ReviewResponse]) { c.notify() })
	m.Regenerate.OnChange(func(requeststate.Snapshot[domain.RegenerateResponse]) { c.notify() })
	m.Delete.OnChange(func(requeststate.Snapshot[domain.DeleteResponse]) { c.notify() })
	m.BulkReview.OnChange(func(requeststate.Snapshot[domain.BulkReviewResponse]) { c.notify() })
	m.BulkDelete.OnChange(func(requeststate.Snapshot[domain.BulkDeleteResponse]) { c.notify() })
}

type subscribers struct {
	mu     sync.Mutex
	chans  map[uint64]chan ConsoleSnapshot
	nextID uint64
}

func newSubscribers() *subscribers {
	return &subscribers{chans: make(map[uint64]chan ConsoleSnapshot)}
}

func (s *subscribers) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chans) == 0
}

func (s *subscribers) add() (<-chan ConsoleSnapshot, func()) {
	ch := make(chan ConsoleSnapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.chans[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.chans, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// publish replaces any undelivered snapshot with snap.
func (s *subscribers) publish(snap ConsoleSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.chans {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

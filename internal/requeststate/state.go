// Package requeststate implements the idle/loading/success/error envelope every
// query and mutation composes.
package requeststate

import "sync"

// Phase of an asynchronous operation.
type Phase string

// Phases.
const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// Snapshot is an immutable view of a Tracker. Value is only meaningful in
// PhaseSuccess and Err is only non-nil in PhaseError.
type Snapshot[V any] struct {
	Phase   Phase
	Value   V
	Err     error
	Message string
}

// Idle reports whether no request has run since the last reset. It says
// nothing about whether the last request failed.
func (s Snapshot[V]) Idle() bool { return s.Phase == PhaseIdle }

// Loading reports whether a request is in flight.
func (s Snapshot[V]) Loading() bool { return s.Phase == PhaseLoading }

// Succeeded reports whether Value holds a committed result.
func (s Snapshot[V]) Succeeded() bool { return s.Phase == PhaseSuccess }

// Failed reports whether Err holds a committed error.
func (s Snapshot[V]) Failed() bool { return s.Phase == PhaseError }

// Listener receives the snapshot produced by a transition.
type Listener[V any] func(Snapshot[V])

// Tracker holds one snapshot and replaces it wholesale on each transition.
// It is safe for concurrent use.
type Tracker[V any] struct {
	mu        sync.RWMutex
	snap      Snapshot[V]
	listeners map[uint64]Listener[V]
	nextID    uint64
}

// NewTracker returns a Tracker in PhaseIdle.
func NewTracker[V any]() *Tracker[V] {
	return &Tracker[V]{
		snap:      Snapshot[V]{Phase: PhaseIdle},
		listeners: make(map[uint64]Listener[V]),
	}
}

// Start enters PhaseLoading with an optional message.
func (t *Tracker[V]) Start(message string) {
	t.set(Snapshot[V]{Phase: PhaseLoading, Message: message})
}

// Succeed commits v.
func (t *Tracker[V]) Succeed(v V) {
	t.set(Snapshot[V]{Phase: PhaseSuccess, Value: v})
}

// Fail commits err. Any previous value is dropped.
func (t *Tracker[V]) Fail(err error) {
	t.set(Snapshot[V]{Phase: PhaseError, Err: err})
}

// Reset returns to PhaseIdle.
func (t *Tracker[V]) Reset() {
	t.set(Snapshot[V]{Phase: PhaseIdle})
}

// Snapshot returns the current state.
func (t *Tracker[V]) Snapshot() Snapshot[V] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// OnChange registers fn for every subsequent transition. The returned func
// removes it.
func (t *Tracker[V]) OnChange(fn Listener[V]) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.listeners, id)
			t.mu.Unlock()
		})
	}
}

func (t *Tracker[V]) set(s Snapshot[V]) {
	t.mu.Lock()
	t.snap = s
	fns := make([]Listener[V], 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	// listeners run outside the lock so they may read the tracker
	for _, fn := range fns {
		fn(s)
	}
}

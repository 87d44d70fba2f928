package filter

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultSearchDelay is the quiet period before search text is delivered.
const DefaultSearchDelay = 300 * time.Millisecond

// SearchDebouncer delivers only the last search text after a quiet period.
// It sits upstream of Controller.Update, which treats every call as a discrete change.
type SearchDebouncer struct {
	debounced func(func())
	deliver   func(string)

	mu      sync.Mutex
	pending string
}

// NewSearchDebouncer calls deliver with the latest text once delay has passed
// without another Push.
func NewSearchDebouncer(delay time.Duration, deliver func(search string)) *SearchDebouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &SearchDebouncer{debounced: debounce.New(delay), deliver: deliver}
}

// Push records text and restarts the quiet period.
func (d *SearchDebouncer) Push(text string) {
	d.mu.Lock()
	d.pending = text
	d.mu.Unlock()

	d.debounced(d.flush)
}

func (d *SearchDebouncer) flush() {
	d.mu.Lock()
	text := d.pending
	d.mu.Unlock()

	d.deliver(text)
}

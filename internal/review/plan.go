package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/draft-review/internal/query"
	"golang.org/x/sync/errgroup"
)

// RefetchMode orders the reads run after a successful write.
type RefetchMode string

// Refetch modes.
const (
	RefetchSequential RefetchMode = "sequential"
	RefetchParallel   RefetchMode = "parallel"
)

// RefetchError reports that a write succeeded but a read refreshed after it
// failed. The failed read has its own error recorded.
type RefetchError struct {
	Action string
	Err    error
}

func (e *RefetchError) Error() string {
	return fmt.Sprintf("refetch after %s: %v", e.Action, e.Err)
}

func (e *RefetchError) Unwrap() error { return e.Err }

type step func(context.Context) error

// run executes every step. Steps never short-circuit each other: a failed list
// refetch still refreshes stats.
func (m RefetchMode) run(ctx context.Context, steps ...step) error {
	errs := make([]error, len(steps))

	if m == RefetchParallel {
		var g errgroup.Group
		for i, s := range steps {
			g.Go(func() error {
				errs[i] = settled(s(ctx))
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, s := range steps {
			errs[i] = settled(s(ctx))
		}
	}

	return errors.Join(errs...)
}

// settled drops ErrSuperseded: a newer request for the same key will commit.
func settled(err error) error {
	if errors.Is(err, query.ErrSuperseded) {
		return nil
	}
	return err
}

// Package query coordinates parameterised reads. Each Query owns one key: a
// loader plus the dependency value it was last issued with. Only the response to
// the most recently issued request is committed.
package query

import (
	"context"
	"errors"
	"sync"

	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/metrics"
	"github.com/jonesrussell/north-cloud/draft-review/internal/requeststate"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of query spans.
const TracerName = "github.com/jonesrussell/north-cloud/draft-review/query"

// Span outcomes recorded in the query.outcome attribute.
const (
	OutcomeCommitted = "committed"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
)

// ErrSuperseded is returned to the caller of a request whose response arrived
// after a newer request for the same query was issued. The response is dropped.
var ErrSuperseded = errors.New("query response superseded by a newer request")

// Loader fetches V for the given dependencies.
type Loader[D comparable, V any] func(ctx context.Context, deps D) (V, error)

// Option configures a Query.
type Option func(*options)

type options struct {
	immediate bool
	session   session.State
	log       logger.Logger
	metrics   *metrics.Recorder
	tracer    trace.Tracer
}

// WithImmediate controls whether SetDependencies issues requests. Defaults to true.
func WithImmediate(immediate bool) Option {
	return func(o *options) { o.immediate = immediate }
}

// WithSession gates SetDependencies on s.Authenticated().
func WithSession(s session.State) Option {
	return func(o *options) { o.session = s }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer. Defaults to the global provider's TracerName tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// Query is a read coordinator for a single key.
//
// OnChange listeners run while the query holds its lock; they must not call
// back into Execute, Refetch, SetDependencies, Invalidate, Epoch or Dependencies.
type Query[D comparable, V any] struct {
	name   string
	loader Loader[D, V]
	opts   options

	tracker *requeststate.Tracker[V]

	mu         sync.Mutex
	deps       D
	issued     bool
	issuedDeps D
	epoch      uint64
}

// New builds a Query named name. The name is used in logs and metrics.
func New[D comparable, V any](name string, loader Loader[D, V], opts ...Option) *Query[D, V] {
	o := options{immediate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}

	return &Query[D, V]{
		name:    name,
		loader:  loader,
		opts:    o,
		tracker: requeststate.NewTracker[V](),
	}
}

// Name returns the query name.
func (q *Query[D, V]) Name() string { return q.name }

// SetDependencies records deps and issues a request when they differ from the
// dependencies of the last issued request, the query is immediate and the
// session (if any) is authenticated. issued reports whether a request ran.
func (q *Query[D, V]) SetDependencies(ctx context.Context, deps D) (issued bool, err error) {
	q.mu.Lock()
	q.deps = deps
	changed := !q.issued || q.issuedDeps != deps
	q.mu.Unlock()

	if !changed || !q.opts.immediate || !q.authenticated() {
		return false, nil
	}

	_, err = q.Execute(ctx)
	return true, err
}

// Execute issues a new request with the current dependencies.
func (q *Query[D, V]) Execute(ctx context.Context) (V, error) {
	q.mu.Lock()
	q.epoch++
	epoch := q.epoch
	deps := q.deps
	q.issued = true
	q.issuedDeps = deps
	q.tracker.Start("")
	q.mu.Unlock()

	ctx, span := q.opts.tracer.Start(ctx, "query.execute",
		trace.WithAttributes(
			attribute.String("query.name", q.name),
			attribute.Int64("query.epoch", int64(epoch)),
		),
	)
	defer span.End()

	q.opts.metrics.QueryIssued(q.name)
	q.opts.log.Debug("Query issued",
		logger.String("query", q.name),
		logger.Uint64("epoch", epoch),
	)

	v, err := q.loader(ctx, deps)

	q.mu.Lock()
	defer q.mu.Unlock()

	if epoch != q.epoch {
		span.SetAttributes(attribute.String("query.outcome", OutcomeDiscarded))
		q.opts.metrics.QueryDiscarded(q.name)
		q.opts.log.Debug("Query response discarded",
			logger.String("query", q.name),
			logger.Uint64("epoch", epoch),
			logger.Uint64("current_epoch", q.epoch),
		)
		var zero V
		return zero, ErrSuperseded
	}

	if err != nil {
		span.SetAttributes(attribute.String("query.outcome", OutcomeFailed))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		q.tracker.Fail(err)
		q.opts.metrics.QueryFailed(q.name)
		q.opts.log.Warn("Query failed",
			logger.String("query", q.name),
			logger.Error(err),
		)
		var zero V
		return zero, err
	}

	span.SetAttributes(attribute.String("query.outcome", OutcomeCommitted))
	q.tracker.Succeed(v)
	q.opts.metrics.QueryCommitted(q.name)
	q.opts.log.Debug("Query committed",
		logger.String("query", q.name),
		logger.Uint64("epoch", epoch),
	)
	return v, nil
}

// Refetch re-issues the request with the same dependencies.
func (q *Query[D, V]) Refetch(ctx context.Context) (V, error) {
	return q.Execute(ctx)
}

// Invalidate discards in-flight responses, returns to idle and forgets the
// issued dependencies so the next SetDependencies re-issues.
func (q *Query[D, V]) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.epoch++
	q.issued = false
	q.tracker.Reset()
}

// Dependencies returns the most recently set dependencies.
func (q *Query[D, V]) Dependencies() D {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deps
}

// Epoch returns the current epoch.
func (q *Query[D, V]) Epoch() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.epoch
}

// Snapshot returns the committed state.
func (q *Query[D, V]) Snapshot() requeststate.Snapshot[V] {
	return q.tracker.Snapshot()
}

// OnChange registers fn for state transitions.
func (q *Query[D, V]) OnChange(fn requeststate.Listener[V]) (cancel func()) {
	return q.tracker.OnChange(fn)
}

func (q *Query[D, V]) authenticated() bool {
	return q.opts.session == nil || q.opts.session.Authenticated()
}

// Package mutation coordinates side-effecting operations. A Mutation tracks its
// own request state and never refetches anything; callers decide which reads to
// refresh after success.
package mutation

import (
	"context"
	"sync"

	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/metrics"
	"github.com/jonesrussell/north-cloud/draft-review/internal/requeststate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of mutation spans.
const TracerName = "github.com/jonesrussell/north-cloud/draft-review/mutation"

// Func performs the side effect.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Option configures a Mutation.
type Option[In any] func(*options[In])

type options[In any] struct {
	validate func(In) error
	log      logger.Logger
	metrics  *metrics.Recorder
	tracer   trace.Tracer
}

// WithValidate runs fn before any state transition. A validation error is
// recorded and returned without calling the mutation.
func WithValidate[In any](fn func(In) error) Option[In] {
	return func(o *options[In]) { o.validate = fn }
}

// WithLogger sets the logger.
func WithLogger[In any](log logger.Logger) Option[In] {
	return func(o *options[In]) { o.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics[In any](m *metrics.Recorder) Option[In] {
	return func(o *options[In]) { o.metrics = m }
}

// WithTracer sets the tracer. Defaults to the global provider's TracerName tracer.
func WithTracer[In any](t trace.Tracer) Option[In] {
	return func(o *options[In]) { o.tracer = t }
}

// Mutation is a write coordinator. Calls are neither queued nor coalesced; when
// calls overlap, only the most recent one writes its terminal state.
type Mutation[In, Out any] struct {
	name    string
	fn      Func[In, Out]
	opts    options[In]
	tracker *requeststate.Tracker[Out]

	mu    sync.Mutex
	epoch uint64
}

// New builds a Mutation named name.
func New[In, Out any](name string, fn Func[In, Out], opts ...Option[In]) *Mutation[In, Out] {
	var o options[In]
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(TracerName)
	}

	return &Mutation[In, Out]{
		name:    name,
		fn:      fn,
		opts:    o,
		tracker: requeststate.NewTracker[Out](),
	}
}

// Name returns the mutation name.
func (m *Mutation[In, Out]) Name() string { return m.name }

// Mutate runs the operation. Errors are recorded and then returned unchanged.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	var zero Out

	ctx, span := m.opts.tracer.Start(ctx, "mutation.mutate",
		trace.WithAttributes(attribute.String("mutation.name", m.name)),
	)
	defer span.End()

	if m.opts.validate != nil {
		if err := m.opts.validate(in); err != nil {
			endSpan(span, metrics.OutcomeInvalid, err)
			m.mu.Lock()
			m.epoch++
			m.tracker.Fail(err)
			m.mu.Unlock()

			m.opts.metrics.MutationOutcome(m.name, metrics.OutcomeInvalid)
			m.opts.log.Debug("Mutation rejected before dispatch",
				logger.String("mutation", m.name),
				logger.Error(err),
			)
			return zero, err
		}
	}

	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.tracker.Start("")
	m.mu.Unlock()

	out, err := m.fn(ctx, in)

	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		// the side effect happened; the newer call owns the state
		endSpan(span, metrics.OutcomeSuperseded, err)
		m.opts.metrics.MutationOutcome(m.name, metrics.OutcomeSuperseded)
		return out, err
	}

	if err != nil {
		endSpan(span, metrics.OutcomeError, err)
		m.tracker.Fail(err)
		m.opts.metrics.MutationOutcome(m.name, metrics.OutcomeError)
		m.opts.log.Warn("Mutation failed",
			logger.String("mutation", m.name),
			logger.Error(err),
		)
		return zero, err
	}

	endSpan(span, metrics.OutcomeSuccess, nil)
	m.tracker.Succeed(out)
	m.opts.metrics.MutationOutcome(m.name, metrics.OutcomeSuccess)
	m.opts.log.Debug("Mutation succeeded", logger.String("mutation", m.name))
	return out, nil
}

// Reset returns to idle. An in-flight call will not write its result.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.tracker.Reset()
}

// Snapshot returns the current state.
func (m *Mutation[In, Out]) Snapshot() requeststate.Snapshot[Out] {
	return m.tracker.Snapshot()
}

// OnChange registers fn for state transitions.
func (m *Mutation[In, Out]) OnChange(fn requeststate.Listener[Out]) (cancel func()) {
	return m.tracker.OnChange(fn)
}

func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("mutation.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// Package metrics records coordinator activity with Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "draft_review"

// Mutation outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeInvalid    = "invalid"
	OutcomeSuperseded = "superseded"
)

// Recorder holds the coordinator counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	queryRequests  *prometheus.CounterVec
	queryDiscarded *prometheus.CounterVec
	queryCommits   *prometheus.CounterVec
	queryFailures  *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		queryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Query loader invocations.",
		}, []string{"query"}),
		queryDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "stale_discards_total",
			Help:      "Query responses discarded because a newer request superseded them.",
		}, []string{"query"}),
		queryCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "commits_total",
			Help:      "Query responses committed to state.",
		}, []string{"query"}),
		queryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "failures_total",
			Help:      "Committed query failures.",
		}, []string{"query"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutation",
			Name:      "outcomes_total",
			Help:      "Mutation outcomes by mutation name.",
		}, []string{"mutation", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by the review service.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// QueryIssued counts a loader invocation.
func (r *Recorder) QueryIssued(name string) {
	if r == nil {
		return
	}
	r.queryRequests.WithLabelValues(name).Inc()
}

// QueryDiscarded counts a stale response.
func (r *Recorder) QueryDiscarded(name string) {
	if r == nil {
		return
	}
	r.queryDiscarded.WithLabelValues(name).Inc()
}

// QueryCommitted counts a response that became the query's value.
func (r *Recorder) QueryCommitted(name string) {
	if r == nil {
		return
	}
	r.queryCommits.WithLabelValues(name).Inc()
}

// QueryFailed counts a committed failure.
func (r *Recorder) QueryFailed(name string) {
	if r == nil {
		return
	}
	r.queryFailures.WithLabelValues(name).Inc()
}

// MutationOutcome counts a mutation result.
func (r *Recorder) MutationOutcome(name, outcome string) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(name, outcome).Inc()
}

// Collectors exposes the underlying vectors for tests.
func (r *Recorder) Collectors() (queryRequests, queryDiscarded, queryCommits, queryFailures, mutations *prometheus.CounterVec) {
	return r.queryRequests, r.queryDiscarded, r.queryCommits, r.queryFailures, r.mutations
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records the dispatch engine's hot-path counters.
type DispatchMetrics struct {
	claimAttempts  *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	cacheRequests  *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	claimAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_claim_attempts_total",
		Help: "Offer claim attempts by outcome (won, lost, error).",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_transitions_total",
		Help: "Offer status transitions by target status.",
	}, []string{"to_status"})
	searchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nearby_search_duration_seconds",
		Help:    "Duration of nearby offer searches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "view_cache_requests_total",
		Help: "View cache lookups by view and result (hit, miss, error).",
	}, []string{"view", "result"})
	reg.MustRegister(claimAttempts, transitions, searchDuration, cacheRequests)
	return &DispatchMetrics{
		claimAttempts:  claimAttempts,
		transitions:    transitions,
		searchDuration: searchDuration,
		cacheRequests:  cacheRequests,
	}
}

// IncClaimAttempt counts one claim attempt with the given outcome.
func (d *DispatchMetrics) IncClaimAttempt(outcome string) {
	if d == nil || d.claimAttempts == nil {
		return
	}
	d.claimAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition counts one committed status transition.
func (d *DispatchMetrics) IncTransition(toStatus string) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}

// ObserveSearch records a nearby search duration; source is "cache" or "store".
func (d *DispatchMetrics) ObserveSearch(source string, duration time.Duration) {
	if d == nil || d.searchDuration == nil {
		return
	}
	d.searchDuration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncCacheRequest counts one view cache lookup result.
func (d *DispatchMetrics) IncCacheRequest(view, result string) {
	if d == nil || d.cacheRequests == nil {
		return
	}
	d.cacheRequests.WithLabelValues(normalizeLabel(view), normalizeLabel(result)).Inc()
}

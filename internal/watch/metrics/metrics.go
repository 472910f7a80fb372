package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the watch subsystem.
type Metrics struct {
	DomainsAdded    prometheus.Counter
	DomainsRemoved  prometheus.Counter
	RefreshOutcomes *prometheus.CounterVec
	CooldownBlocks  prometheus.Counter
	UpstreamLatency prometheus.Histogram
}

// New creates and registers all watch metrics.
func New() *Metrics {
	return &Metrics{
		DomainsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainwatch_domains_added_total",
			Help: "Total number of domain records created",
		}),
		DomainsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainwatch_domains_removed_total",
			Help: "Total number of domain records deleted after the last association was removed",
		}),
		RefreshOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainwatch_refresh_total",
			Help: "Refresh attempts by outcome",
		}, []string{"outcome"}),
		CooldownBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainwatch_refresh_cooldown_blocked_total",
			Help: "Refresh attempts denied by the cooldown window",
		}),
		UpstreamLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "domainwatch_registry_lookup_seconds",
			Help:    "Latency of registry lookups",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRefresh records one refresh attempt.
func (m *Metrics) ObserveRefresh(outcome string, upstream time.Duration) {
	if m == nil {
		return
	}
	m.RefreshOutcomes.WithLabelValues(outcome).Inc()
	if upstream > 0 {
		m.UpstreamLatency.Observe(upstream.Seconds())
	}
}

// IncrementCooldownBlocked counts a refresh denied by the gate.
func (m *Metrics) IncrementCooldownBlocked() {
	if m == nil {
		return
	}
	m.CooldownBlocks.Inc()
}

// IncrementAdded counts a created domain record.
func (m *Metrics) IncrementAdded() {
	if m == nil {
		return
	}
	m.DomainsAdded.Inc()
}

// IncrementRemoved counts a deleted domain record.
func (m *Metrics) IncrementRemoved() {
	if m == nil {
		return
	}
	m.DomainsRemoved.Inc()
}

package prometrics

import (
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

type instrumentKind int

const (
	kindCounter instrumentKind = iota
	kindHistogram
	kindGauge
)

type instrument struct {
	key     observability.MetricKey
	kind    instrumentKind
	help    string
	labels  []string
	buckets []float64
}

// remoteBuckets cover 5ms to ~10s, the span of product lookups, promo calls and broker writes.
var remoteBuckets = prometheus.ExponentialBuckets(0.005, 2, 12)

// catalogue lists every metric the storefront services emit.
var catalogue = []instrument{
	{key: observability.MUsecaseRequests, kind: kindCounter,
		help: "Total number of use case invocations.", labels: []string{"use_case", "outcome"}},
	{key: observability.MUsecaseDuration, kind: kindHistogram,
		help: "Duration of use case execution in seconds.", labels: []string{"use_case"}, buckets: prometheus.DefBuckets},

	{key: observability.MHTTPRequests, kind: kindCounter,
		help: "Total number of HTTP requests.", labels: []string{"method", "route", "status"}},
	{key: observability.MHTTPRequestDuration, kind: kindHistogram,
		help: "Duration of HTTP requests in seconds.", labels: []string{"method", "route", "status"}, buckets: prometheus.DefBuckets},

	{key: observability.MExternalRequests, kind: kindCounter,
		help: "Calls made to remote services and the broker.", labels: []string{"peer", "endpoint", "outcome"}},
	{key: observability.MExternalRequestDuration, kind: kindHistogram,
		help: "Duration of remote calls in seconds.", labels: []string{"peer", "endpoint"}, buckets: remoteBuckets},

	{key: observability.MStockAdjustments, kind: kindCounter,
		help: "Stock adjustment messages handled by outcome.", labels: []string{"kind", "outcome"}},
	{key: observability.MDeadLetters, kind: kindCounter,
		help: "Messages routed to a dead-letter topic.", labels: []string{"topic"}},
	{key: observability.MBrokerQueueDepth, kind: kindGauge,
		help: "Messages accepted by the in-process broker and not yet delivered."},

	{key: observability.MLowStockNotifications, kind: kindCounter,
		help: "Low-stock listener invocations by outcome.", labels: []string{"outcome"}},
	{key: observability.MLowStockPending, kind: kindGauge,
		help: "Low-stock notifications queued or running."},
}

// Set holds the registered storefront instruments and serves them as observability.Metrics.
type Set struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
	gauges     map[observability.MetricKey]observability.Gauge
}

var _ observability.Metrics = (*Set)(nil)

// Register creates every catalogue instrument on r.
func Register(r Registry) *Set {
	s := &Set{
		counters:   make(map[observability.MetricKey]observability.Counter),
		histograms: make(map[observability.MetricKey]observability.Histogram),
		gauges:     make(map[observability.MetricKey]observability.Gauge),
	}
	for _, in := range catalogue {
		name := string(in.key)
		switch in.kind {
		case kindCounter:
			s.counters[in.key] = r.Counter(name, in.help, in.labels...)
		case kindHistogram:
			s.histograms[in.key] = r.Histogram(name, in.help, in.buckets, in.labels...)
		case kindGauge:
			s.gauges[in.key] = r.Gauge(name, in.help, in.labels...)
		}
	}
	return s
}

func (s *Set) Counter(key observability.MetricKey) observability.Counter {
	if c, ok := s.counters[key]; ok {
		return c
	}
	return observability.NopCounter()
}

func (s *Set) Histogram(key observability.MetricKey) observability.Histogram {
	if h, ok := s.histograms[key]; ok {
		return h
	}
	return observability.NopHistogram()
}

func (s *Set) Gauge(key observability.MetricKey) observability.Gauge {
	if g, ok := s.gauges[key]; ok {
		return g
	}
	return observability.NopGauge()
}

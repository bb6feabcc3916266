package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	c1 := r.Counter("stock_adjustments_total", "help", "kind", "outcome")
	c2 := r.Counter("stock_adjustments_total", "help", "kind", "outcome")
	c1.Add(1, observability.L("kind", "decrement"), observability.L("outcome", "applied"))
	c2.Bind(observability.L("outcome", "applied"), observability.L("kind", "decrement")).Add(2)

	n, err := testutil.GatherAndCount(reg, "stock_adjustments_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	cv := r.(*registry).collectors["stock_adjustments_total"].(*prometheus.CounterVec)
	assert.Equal(t, 3.0, testutil.ToFloat64(cv.WithLabelValues("decrement", "applied")))
}

func TestReusesCollectorAlreadyOnRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "", "").Counter("stock_dead_letters_total", "help", "topic").Add(1, observability.L("topic", "stock.update"))

	// A second Registry over the same registerer must not panic and must share the series.
	New(reg, "", "").Counter("stock_dead_letters_total", "help", "topic").Add(1, observability.L("topic", "stock.update"))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 2.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestMislabelledSamplesDoNotPanic(t *testing.T) {
	r := New(prometheus.NewRegistry(), "", "")
	c := r.Counter("http_requests_total", "help", "method", "route", "status")
	h := r.Histogram("usecase_duration_seconds", "help", prometheus.DefBuckets, "use_case")

	assert.NotPanics(t, func() {
		c.Add(1, observability.L("method", "GET"))
		c.Add(1, observability.L("unexpected", "x"))
		c.Add(-1)
		h.Observe(0.2, observability.L("use_case", "transaction.pay"), observability.L("extra", "y"))
	})
}

func TestGaugeMovesBothWays(t *testing.T) {
	r := New(prometheus.NewRegistry(), "", "")
	g := r.Gauge("broker_queue_depth", "help")

	g.Add(3)
	g.Add(-1)
	gv := r.(*registry).collectors["broker_queue_depth"].(*prometheus.GaugeVec)
	assert.Equal(t, 2.0, testutil.ToFloat64(gv.WithLabelValues()))

	g.Set(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(gv.WithLabelValues()))
}

func TestRegisterCoversEveryKey(t *testing.T) {
	reg := prometheus.NewRegistry()
	set := Register(New(reg, "", ""))

	for _, in := range catalogue {
		switch in.kind {
		case kindCounter:
			assert.Contains(t, set.counters, in.key)
		case kindHistogram:
			assert.Contains(t, set.histograms, in.key)
		case kindGauge:
			assert.Contains(t, set.gauges, in.key)
		}
	}
	assert.NotNil(t, set.Counter("unknown_total"))
	assert.NotNil(t, set.Gauge("unknown_level"))
}

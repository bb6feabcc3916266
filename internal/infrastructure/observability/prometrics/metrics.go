package prometrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates Prometheus-backed instruments. Asking twice for the same name returns the
// same collector, and a collector already present on the registerer is reused.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
	Gauge(name string, help string, labelKeys ...string) observability.Gauge
}

type registry struct {
	mu         sync.Mutex
	collectors map[string]prometheus.Collector
	reg        prometheus.Registerer
	namespace  string
	subsystem  string
}

// New returns a Registry that registers collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{
		collectors: make(map[string]prometheus.Collector),
		reg:        reg,
		namespace:  namespace,
		subsystem:  subsystem,
	}
}

// register returns the collector stored under name, registering c when there is none.
func (r *registry) register(name string, c prometheus.Collector) prometheus.Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.collectors[name]; ok {
		return existing
	}
	if err := r.reg.Register(c); err != nil {
		var dup prometheus.AlreadyRegisteredError
		if !errors.As(err, &dup) {
			panic(fmt.Errorf("prometrics: register %s: %w", name, err))
		}
		c = dup.ExistingCollector
	}
	r.collectors[name] = c
	return c
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	c := r.register(name, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys))
	cv, ok := c.(*prometheus.CounterVec)
	if !ok {
		panic(fmt.Sprintf("prometrics: %s is registered as %T, not a counter", name, c))
	}
	return &counter{v: cv, series: series(labelKeys)}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	c := r.register(name, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys))
	hv, ok := c.(*prometheus.HistogramVec)
	if !ok {
		panic(fmt.Sprintf("prometrics: %s is registered as %T, not a histogram", name, c))
	}
	return &histogram{v: hv, series: series(labelKeys)}
}

func (r *registry) Gauge(name string, help string, labelKeys ...string) observability.Gauge {
	c := r.register(name, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys))
	gv, ok := c.(*prometheus.GaugeVec)
	if !ok {
		panic(fmt.Sprintf("prometrics: %s is registered as %T, not a gauge", name, c))
	}
	return &gauge{v: gv, series: series(labelKeys)}
}

// series orders sample labels by the declared keys. Missing labels become "" and
// undeclared ones are dropped, so a mislabelled call site never panics.
type series []string

func (s series) values(ls []observability.Label) []string {
	out := make([]string, len(s))
	for _, l := range ls {
		for i, k := range s {
			if k == l.Key {
				out[i] = l.Value
				break
			}
		}
	}
	return out
}

type counter struct {
	v *prometheus.CounterVec
	series
}

func (c *counter) Add(d float64, labels ...observability.Label) {
	if d < 0 {
		return
	}
	c.v.WithLabelValues(c.values(labels)...).Add(d)
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundCounter{c: c.v.WithLabelValues(c.values(labels)...)}
}

type boundCounter struct{ c prometheus.Counter }

func (b boundCounter) Add(d float64) {
	if d >= 0 {
		b.c.Add(d)
	}
}

type histogram struct {
	v *prometheus.HistogramVec
	series
}

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.WithLabelValues(h.values(labels)...).Observe(v)
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return boundHistogram{o: h.v.WithLabelValues(h.values(labels)...)}
}

type boundHistogram struct{ o prometheus.Observer }

func (b boundHistogram) Observe(v float64) { b.o.Observe(v) }

type gauge struct {
	v *prometheus.GaugeVec
	series
}

func (g *gauge) Set(v float64, labels ...observability.Label) {
	g.v.WithLabelValues(g.values(labels)...).Set(v)
}

func (g *gauge) Add(d float64, labels ...observability.Label) {
	g.v.WithLabelValues(g.values(labels)...).Add(d)
}

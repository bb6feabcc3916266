// Package observabilitytest provides in-memory observability ports for tests.
package observabilitytest

import (
	"sort"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/storefront/internal/observability"
)

type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// Recorder implements observability.Observability and keeps everything it is given.
type Recorder struct {
	mu       sync.Mutex
	entries  []Entry
	counters map[string]float64
	observed map[string]int
	gauges   map[string]float64
}

func New() *Recorder {
	return &Recorder{counters: map[string]float64{}, observed: map[string]int{}, gauges: map[string]float64{}}
}

func (r *Recorder) Tracer() observability.Tracer   { return observability.NopTracer() }
func (r *Recorder) Logger() observability.Logger   { return &logger{r: r} }
func (r *Recorder) Metrics() observability.Metrics { return metrics{r: r} }

// Entries returns log entries with the given message.
func (r *Recorder) Entries(msg string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the counter value for key with exactly the given labels.
func (r *Recorder) Count(key observability.MetricKey, labels ...observability.Label) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[seriesKey(string(key), labels)]
}

// Observations returns how many histogram samples were recorded for key and labels.
func (r *Recorder) Observations(key observability.MetricKey, labels ...observability.Label) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed[seriesKey(string(key), labels)]
}

// Level returns the current gauge value for key and labels.
func (r *Recorder) Level(key observability.MetricKey, labels ...observability.Label) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gauges[seriesKey(string(key), labels)]
}

func seriesKey(name string, labels []observability.Label) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Key+"="+l.Value)
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

type logger struct {
	r      *Recorder
	fields []observability.Field
}

func (l *logger) With(fields ...observability.Field) observability.Logger {
	return &logger{r: l.r, fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func (l *logger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l *logger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l *logger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l *logger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }

func (l *logger) log(level, msg string, fields []observability.Field) {
	m := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.r.mu.Lock()
	l.r.entries = append(l.r.entries, Entry{Level: level, Msg: msg, Fields: m})
	l.r.mu.Unlock()
}

type metrics struct{ r *Recorder }

func (m metrics) Counter(name observability.MetricKey) observability.Counter {
	return &counter{r: m.r, name: string(name)}
}

func (m metrics) Histogram(name observability.MetricKey) observability.Histogram {
	return &histogram{r: m.r, name: string(name)}
}

func (m metrics) Gauge(name observability.MetricKey) observability.Gauge {
	return &gauge{r: m.r, name: string(name)}
}

type counter struct {
	r    *Recorder
	name string
}

func (c *counter) Add(delta float64, labels ...observability.Label) {
	c.r.mu.Lock()
	c.r.counters[seriesKey(c.name, labels)] += delta
	c.r.mu.Unlock()
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundCounter{c: c, labels: labels}
}

type boundCounter struct {
	c      *counter
	labels []observability.Label
}

func (b boundCounter) Add(delta float64) { b.c.Add(delta, b.labels...) }

type histogram struct {
	r    *Recorder
	name string
}

func (h *histogram) Observe(_ float64, labels ...observability.Label) {
	h.r.mu.Lock()
	h.r.observed[seriesKey(h.name, labels)]++
	h.r.mu.Unlock()
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return boundHistogram{h: h, labels: labels}
}

type boundHistogram struct {
	h      *histogram
	labels []observability.Label
}

func (b boundHistogram) Observe(v float64) { b.h.Observe(v, b.labels...) }

type gauge struct {
	r    *Recorder
	name string
}

func (g *gauge) Set(v float64, labels ...observability.Label) {
	g.r.mu.Lock()
	g.r.gauges[seriesKey(g.name, labels)] = v
	g.r.mu.Unlock()
}

func (g *gauge) Add(delta float64, labels ...observability.Label) {
	g.r.mu.Lock()
	g.r.gauges[seriesKey(g.name, labels)] += delta
	g.r.mu.Unlock()
}

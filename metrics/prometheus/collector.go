// Package prometheus exports backend metrics to Prometheus.
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/hsearch"
)

const defaultNamespace = "hsearch"

type options struct {
	namespace string
	buckets   []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric name prefix. Defaults to "hsearch".
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) {
		o.buckets = b
	}
}

// Collector implements hsearch.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency *prom.HistogramVec
	writes    *prom.CounterVec
	searches  *prom.CounterVec
	hits      prom.Histogram
}

// New creates a Collector and registers its metrics with reg.
func New(reg prom.Registerer, optFns ...Option) (*Collector, error) {
	o := options{namespace: defaultNamespace, buckets: prom.DefBuckets}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		opLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: o.namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of backend operations",
			Buckets:   o.buckets,
		}, []string{"op", "index", "status"}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: o.namespace,
			Name:      "writes_total",
			Help:      "Document writes per index",
		}, []string{"op", "index", "status"}),
		searches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: o.namespace,
			Name:      "searches_total",
			Help:      "Searches by status",
		}, []string{"status"}),
		hits: prom.NewHistogram(prom.HistogramOpts{
			Namespace: o.namespace,
			Name:      "search_hits",
			Help:      "Total hits per successful search",
			Buckets:   prom.ExponentialBuckets(1, 4, 10),
		}),
	}

	for _, m := range []prom.Collector{c.opLatency, c.writes, c.searches, c.hits} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) write(op, index string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, index, s).Observe(d.Seconds())
	c.writes.WithLabelValues(op, index, s).Inc()
}

func (c *Collector) RecordAdd(index string, d time.Duration, err error) {
	c.write("add", index, d, err)
}

func (c *Collector) RecordUpdate(index string, d time.Duration, err error) {
	c.write("update", index, d, err)
}

func (c *Collector) RecordDelete(index string, d time.Duration, err error) {
	c.write("delete", index, d, err)
}

func (c *Collector) RecordCommit(index string, d time.Duration, err error) {
	c.opLatency.WithLabelValues("commit", index, status(err)).Observe(d.Seconds())
}

// RecordSearch records latency under an empty index label; scopes span
// several indexes.
func (c *Collector) RecordSearch(_, hits int, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues("search", "", s).Observe(d.Seconds())
	c.searches.WithLabelValues(s).Inc()
	if err == nil {
		c.hits.Observe(float64(hits))
	}
}

var _ hsearch.MetricsCollector = (*Collector)(nil)

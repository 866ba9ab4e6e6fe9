package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hnswdb"

// Collector records index operations as Prometheus metrics. It satisfies
// hnswdb.MetricsCollector.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	batchItems *prometheus.CounterVec
	searchK    prometheus.Histogram
	savedBytes prometheus.Counter
	vectors    prometheus.Gauge
	collectors []prometheus.Collector
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	constLabels prometheus.Labels
	buckets     []float64
}

// WithConstLabels attaches labels (for example the index name) to every metric.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) {
		o.constLabels = labels
	}
}

// WithLatencyBuckets overrides the latency histogram buckets.
func WithLatencyBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// NewCollector creates a collector and registers it with reg. A nil reg
// leaves registration to the caller.
func NewCollector(reg prometheus.Registerer, optFns ...Option) (*Collector, error) {
	o := options{buckets: prometheus.ExponentialBuckets(0.00005, 2, 16)}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "operation_latency_seconds",
			Help:        "Latency of index operations",
			Buckets:     o.buckets,
			ConstLabels: o.constLabels,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "operations_total",
			Help:        "Total index operations",
			ConstLabels: o.constLabels,
		}, []string{"op", "status"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "batch_insert_items_total",
			Help:        "Vectors submitted through batch inserts",
			ConstLabels: o.constLabels,
		}, []string{"status"}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "search_k",
			Help:        "Number of neighbors requested per search",
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
			ConstLabels: o.constLabels,
		}),
		savedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "saved_bytes_total",
			Help:        "Artifact bytes written by successful saves",
			ConstLabels: o.constLabels,
		}),
		vectors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "vectors",
			Help:        "Vectors indexed since the last load",
			ConstLabels: o.constLabels,
		}),
	}
	c.collectors = []prometheus.Collector{c.opLatency, c.ops, c.batchItems, c.searchK, c.savedBytes, c.vectors}

	if reg != nil {
		for _, m := range c.collectors {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// MustNewCollector is NewCollector that panics on registration errors.
func MustNewCollector(reg prometheus.Registerer, optFns ...Option) *Collector {
	c, err := NewCollector(reg, optFns...)
	if err != nil {
		panic(err)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors {
		m.Collect(ch)
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordInsert records a single insert.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", d, err)
	if err == nil {
		c.vectors.Inc()
	}
}

// RecordBatchInsert records a batch insert.
func (c *Collector) RecordBatchInsert(count, failed int, d time.Duration) {
	var err error
	if failed > 0 {
		err = errBatchFailed
	}
	c.observe("batch_insert", d, err)

	ok := count - failed
	c.batchItems.WithLabelValues("success").Add(float64(ok))
	c.batchItems.WithLabelValues("error").Add(float64(failed))
	c.vectors.Add(float64(ok))
}

// RecordSearch records a search.
func (c *Collector) RecordSearch(k int, d time.Duration, err error) {
	c.observe("search", d, err)
	c.searchK.Observe(float64(k))
}

// RecordSave records a save.
func (c *Collector) RecordSave(bytes int64, d time.Duration, err error) {
	c.observe("save", d, err)
	if err == nil {
		c.savedBytes.Add(float64(bytes))
	}
}

// RecordLoad records a load and resets the vector gauge to the loaded count.
func (c *Collector) RecordLoad(count int, d time.Duration, err error) {
	c.observe("load", d, err)
	if err == nil {
		c.vectors.Set(float64(count))
	}
}

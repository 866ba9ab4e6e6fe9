// Package prometheus exports index metrics through client_golang.
//
//	reg := prometheus.NewRegistry()
//	collector := hnswprom.MustNewCollector(reg, hnswprom.WithConstLabels(prometheus.Labels{"index": "products"}))
//
//	idx, err := hnswdb.New(384, distance.Cosine, hnswdb.WithMetricsCollector(collector))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// All metrics live in the hnswdb namespace: operation latency and counts per
// operation and status, batch insert items, requested k, saved bytes, and a
// gauge of vectors indexed since the last load.
package prometheus

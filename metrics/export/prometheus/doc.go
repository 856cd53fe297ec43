// Package prometheus exposes goAccount engine metrics as a Prometheus
// collector.
//
// [Exporter] implements prometheus.Collector and reads
// [goAccount.Engine.MetricsSnapshot] on every scrape. Counters are named
// goaccount_*_total; password hashing latency is the histogram
// goaccount_password_hash_seconds. Nothing is registered globally: callers
// either register the Exporter themselves or mount [Exporter.Handler].
package prometheus

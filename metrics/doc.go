// Package metrics exposes pipeline counters and provider latencies through
// Prometheus.
package metrics

// Package metrics exposes the server's operational counters and gauges in
// Prometheus text exposition format. Families are built as client_model
// protos and rendered through expfmt, so the output is exactly what a
// Prometheus scraper expects.
package metrics

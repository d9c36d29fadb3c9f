// Package metric provides Prometheus metrics for webhost-server.
//
//   - recorder.go: the Recorder interface used by the listener stack, and a no-op
//   - prometheus.go: Recorder backed by a Prometheus registry, plus the /metrics handler
//   - collector.go: scrape-time collector for TLS certificate expiry
//
// All metrics use the "webhost" namespace and are registered on a registry
// owned by the caller, never on the global default registry.
package metric

package metric

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// ExpirySource reports, per instance, the earliest NotAfter among the
// certificates it currently serves. Instances without certificates are
// omitted.
type ExpirySource func() map[string]time.Time

// ExpiryCollector exports certificate expiry at scrape time, so the value
// follows material reloads without explicit updates.
type ExpiryCollector struct {
	source ExpirySource
	desc   *prom.Desc
}

// NewExpiryCollector creates a collector reading from source.
func NewExpiryCollector(source ExpirySource) *ExpiryCollector {
	return &ExpiryCollector{
		source: source,
		desc: prom.NewDesc(
			prom.BuildFQName(namespace, "tls", "certificate_expiry_timestamp_seconds"),
			"Unix time at which the earliest served certificate expires",
			[]string{"instance"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *ExpiryCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *ExpiryCollector) Collect(ch chan<- prom.Metric) {
	for instance, notAfter := range c.source() {
		ch <- prom.MustNewConstMetric(c.desc, prom.GaugeValue, float64(notAfter.Unix()), instance)
	}
}

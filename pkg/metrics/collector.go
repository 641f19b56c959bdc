// Package metrics exports engine pool statistics as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/taproot/pkg/engine"
)

const namespace = "taproot"

// Collector exposes connection pool statistics of an engine binding. One collector
// serves either binding mode; the metric set differs slightly because the underlying
// pools report different counters.
type Collector struct {
	binding *engine.Binding

	maxConns     *prometheus.Desc
	openConns    *prometheus.Desc
	idleConns    *prometheus.Desc
	inUseConns   *prometheus.Desc
	waitCount    *prometheus.Desc
	waitDuration *prometheus.Desc
}

// NewCollector creates a collector for the binding, labeled with the resource name.
func NewCollector(binding *engine.Binding, resource string) *Collector {
	labels := prometheus.Labels{
		"resource": resource,
		"dialect":  binding.Dialect(),
	}
	return &Collector{
		binding: binding,
		maxConns: prometheus.NewDesc(
			namespace+"_pool_max_connections",
			"Maximum number of open connections allowed by the pool.",
			nil, labels),
		openConns: prometheus.NewDesc(
			namespace+"_pool_open_connections",
			"Connections currently established, in use or idle.",
			nil, labels),
		idleConns: prometheus.NewDesc(
			namespace+"_pool_idle_connections",
			"Established connections currently idle.",
			nil, labels),
		inUseConns: prometheus.NewDesc(
			namespace+"_pool_in_use_connections",
			"Established connections currently in use.",
			nil, labels),
		waitCount: prometheus.NewDesc(
			namespace+"_pool_wait_count_total",
			"Total number of acquisitions that had to wait for a connection.",
			nil, labels),
		waitDuration: prometheus.NewDesc(
			namespace+"_pool_wait_duration_seconds_total",
			"Total time spent waiting for a connection.",
			nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.maxConns
	ch <- c.openConns
	ch <- c.idleConns
	ch <- c.inUseConns
	ch <- c.waitCount
	ch <- c.waitDuration
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.binding.Native() {
		stat := c.binding.Pool().Stat()
		ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()))
		ch <- prometheus.MustNewConstMetric(c.openConns, prometheus.GaugeValue, float64(stat.TotalConns()))
		ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
		ch <- prometheus.MustNewConstMetric(c.inUseConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
		ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
		ch <- prometheus.MustNewConstMetric(c.waitDuration, prometheus.CounterValue, stat.AcquireDuration().Seconds())
		return
	}

	stats := c.binding.DB().Stats()
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stats.MaxOpenConnections))
	ch <- prometheus.MustNewConstMetric(c.openConns, prometheus.GaugeValue, float64(stats.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stats.Idle))
	ch <- prometheus.MustNewConstMetric(c.inUseConns, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, float64(stats.WaitCount))
	ch <- prometheus.MustNewConstMetric(c.waitDuration, prometheus.CounterValue, stats.WaitDuration.Seconds())
}

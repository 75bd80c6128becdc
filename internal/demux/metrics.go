// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package demux

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "logdemux"
	targetLabel      = "target"
)

// Metrics is told about the demultiplexer's routing decisions.
type Metrics interface {
	LineRouted(target string)
	LineDiscarded()
	SourceSwitched(target string)
	Flushed(target string)
}

type noopMetrics struct{}

func (noopMetrics) LineRouted(string)     {}
func (noopMetrics) LineDiscarded()        {}
func (noopMetrics) SourceSwitched(string) {}
func (noopMetrics) Flushed(string)        {}

// MetricsCollector is a prometheus.Collector that implements Metrics.
type MetricsCollector struct {
	linesRouted    *prometheus.CounterVec
	linesDiscarded prometheus.Counter
	switches       *prometheus.CounterVec
	flushes        *prometheus.CounterVec
}

// NewMetricsCollector returns a new MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		linesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_routed_total",
			Help:      "Number of lines delivered to each target.",
		}, []string{targetLabel}),
		linesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_discarded_total",
			Help:      "Number of lines discarded for want of a target.",
		}),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "source_switches_total",
			Help:      "Number of switches to each target's source.",
		}, []string{targetLabel}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "flushes_total",
			Help:      "Number of flushes sent to each target.",
		}, []string{targetLabel}),
	}
}

// LineRouted is part of the Metrics interface.
func (c *MetricsCollector) LineRouted(target string) {
	c.linesRouted.WithLabelValues(target).Inc()
}

// LineDiscarded is part of the Metrics interface.
func (c *MetricsCollector) LineDiscarded() {
	c.linesDiscarded.Inc()
}

// SourceSwitched is part of the Metrics interface.
func (c *MetricsCollector) SourceSwitched(target string) {
	c.switches.WithLabelValues(target).Inc()
}

// Flushed is part of the Metrics interface.
func (c *MetricsCollector) Flushed(target string) {
	c.flushes.WithLabelValues(target).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.linesRouted.Describe(ch)
	c.linesDiscarded.Describe(ch)
	c.switches.Describe(ch)
	c.flushes.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.linesRouted.Collect(ch)
	c.linesDiscarded.Collect(ch)
	c.switches.Collect(ch)
	c.flushes.Collect(ch)
}

// Package stats exposes the allocator's diagnostic Stats() snapshot
// (spec.md §4.4) as Prometheus metrics. cc-backend depends on
// prometheus/client_golang as a query client against an external
// Prometheus; here the same dependency is put to its more common
// exposition role, the two halves of the one library.
package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"govetachun/kbuddy/internal/buddy"
)

// Collector implements prometheus.Collector over an *buddy.Allocator,
// scraped on demand rather than cached, since Stats() is already a cheap
// O(DEPTH) walk taken under the allocator's own lock.
type Collector struct {
	alloc *buddy.Allocator

	usedPages    *prometheus.Desc
	freePages    *prometheus.Desc
	freeAtLevel  *prometheus.Desc
	lockAcquires *prometheus.Desc
	lockContends *prometheus.Desc
}

// NewCollector builds a Collector for alloc. name distinguishes multiple
// allocators in the same registry (there is exactly one in this daemon,
// but the label keeps the metric shape stable if that ever changes).
func NewCollector(name string, alloc *buddy.Allocator) *Collector {
	constLabels := prometheus.Labels{"allocator": name}
	return &Collector{
		alloc: alloc,
		usedPages: prometheus.NewDesc("kbuddy_used_pages", "Pages currently allocated.",
			nil, constLabels),
		freePages: prometheus.NewDesc("kbuddy_free_pages", "Pages currently free.",
			nil, constLabels),
		freeAtLevel: prometheus.NewDesc("kbuddy_free_nodes", "Free nodes at each tree level.",
			[]string{"level"}, constLabels),
		lockAcquires: prometheus.NewDesc("kbuddy_lock_acquisitions_total", "Lock acquisitions.",
			nil, constLabels),
		lockContends: prometheus.NewDesc("kbuddy_lock_contended_total", "Lock acquisitions that had to wait.",
			nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.usedPages
	ch <- c.freePages
	ch <- c.freeAtLevel
	ch <- c.lockAcquires
	ch <- c.lockContends
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.alloc.Stats()

	ch <- prometheus.MustNewConstMetric(c.usedPages, prometheus.GaugeValue, float64(s.UsedPages))
	ch <- prometheus.MustNewConstMetric(c.freePages, prometheus.GaugeValue, float64(s.FreePages))
	for _, l := range s.PerLevel {
		ch <- prometheus.MustNewConstMetric(c.freeAtLevel, prometheus.GaugeValue,
			float64(l.Free), strconv.Itoa(l.Level))
	}
	ch <- prometheus.MustNewConstMetric(c.lockAcquires, prometheus.CounterValue, float64(s.Lock.Acquisitions))
	ch <- prometheus.MustNewConstMetric(c.lockContends, prometheus.CounterValue, float64(s.Lock.Contended))
}

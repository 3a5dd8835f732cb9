package metrics

import (
	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// Snapshotter is the part of the registry the collector reads.
type Snapshotter interface {
	Snapshot() []registry.EntryInfo
}

// Collector reports the live entry count per capability and mode at scrape
// time.
type Collector struct {
	source  Snapshotter
	entries *prometheus.Desc
	primary *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading from source.
//
// Metrics:
//   - locus_registry_entries{capability,mode}
//   - locus_registry_primary{capability} (1 when a primary is set)
func NewCollector(source Snapshotter) *Collector {
	return &Collector{
		source: source,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "entries"),
			"Number of live registry entries",
			[]string{"capability", "mode"}, nil,
		),
		primary: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "primary"),
			"Whether the capability has a primary entry",
			[]string{"capability"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.primary
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	type series struct {
		key  registry.Key
		mode registry.Mode
	}
	counts := make(map[series]int)
	primaries := make(map[registry.Key]bool)
	var order []registry.Key

	for _, info := range c.source.Snapshot() {
		if _, seen := primaries[info.Key]; !seen {
			primaries[info.Key] = false
			order = append(order, info.Key)
		}
		counts[series{info.Key, info.Mode}]++
		if info.Primary {
			primaries[info.Key] = true
		}
	}

	for s, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(n), s.key.String(), s.mode.String())
	}
	for _, key := range order {
		v := 0.0
		if primaries[key] {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.primary, prometheus.GaugeValue, v, key.String())
	}
}

package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/QuangTung97/tagalloc/allocator"
)

// Collector publishes a snapshot of arena occupancy on every scrape.
// The arena is not goroutine-safe, so scrapes must be serialized with the
// arena's owner.
type Collector struct {
	arena *allocator.Arena

	capacity    *prometheus.Desc
	bytes       *prometheus.Desc
	blocks      *prometheus.Desc
	largestFree *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector ...
func NewCollector(namespace string, arena *allocator.Arena) *Collector {
	return &Collector{
		arena: arena,

		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "capacity_bytes"),
			"Total arena size including tags",
			nil, nil,
		),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "bytes"),
			"Arena bytes by state",
			[]string{"state"}, nil,
		),
		blocks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "blocks"),
			"Arena blocks by state",
			[]string{"state"}, nil,
		),
		largestFree: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "largest_free_bytes"),
			"Payload size of the largest free block",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.bytes
	ch <- c.blocks
	ch <- c.largestFree
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.arena.Stats()

	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.FreeBytes), "free")
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.UsedBytes), "used")
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.TagBytes), "tags")
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(s.FreeBlocks), "free")
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(s.UsedBlocks), "used")
	ch <- prometheus.MustNewConstMetric(c.largestFree, prometheus.GaugeValue, float64(s.LargestFree))
}

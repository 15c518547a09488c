// Package promstats exports arena activity and occupancy to Prometheus.
package promstats

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/QuangTung97/tagalloc/allocator"
)

// Observer implements allocator.Observer with Prometheus counters.
type Observer struct {
	allocations   *prometheus.CounterVec
	deallocations *prometheus.CounterVec
	allocSize     prometheus.Histogram
}

var _ allocator.Observer = (*Observer)(nil)

// NewObserver creates an unregistered Observer. It is also a
// prometheus.Collector and can be passed to a prometheus.Registerer.
func NewObserver(namespace string) *Observer {
	return &Observer{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Allocate calls by outcome",
		}, []string{"status"}),
		deallocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deallocations_total",
			Help:      "Deallocate calls by outcome",
		}, []string{"status"}),
		allocSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_size_bytes",
			Help:      "Payload size of successful allocations",
			Buckets:   prometheus.ExponentialBuckets(4, 4, 10),
		}),
	}
}

// Describe implements prometheus.Collector.
func (o *Observer) Describe(ch chan<- *prometheus.Desc) {
	o.allocations.Describe(ch)
	o.deallocations.Describe(ch)
	o.allocSize.Describe(ch)
}

// Collect implements prometheus.Collector.
func (o *Observer) Collect(ch chan<- prometheus.Metric) {
	o.allocations.Collect(ch)
	o.deallocations.Collect(ch)
	o.allocSize.Collect(ch)
}

// OnAllocate implements allocator.Observer.
func (o *Observer) OnAllocate(size uint32, err error) {
	o.allocations.WithLabelValues(status(err)).Inc()
	if err == nil {
		o.allocSize.Observe(float64(size))
	}
}

// OnDeallocate implements allocator.Observer.
func (o *Observer) OnDeallocate(_ uint32, err error) {
	o.deallocations.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, allocator.ErrOutOfMemory):
		return "out_of_memory"
	case errors.Is(err, allocator.ErrInvalidPointer):
		return "invalid_pointer"
	default:
		return "error"
	}
}

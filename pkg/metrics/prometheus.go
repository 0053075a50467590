package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	descGeneratorQueueSize = prometheus.NewDesc("eventgen_generator_queue_size",
		"Items waiting in the generator queue.", nil, nil)
	descOutputQueueSize = prometheus.NewDesc("eventgen_output_queue_size",
		"Batches waiting in the output queue.", nil, nil)
	descEventsSent = prometheus.NewDesc("eventgen_events_sent_total",
		"Events handed over to output plugins.", nil, nil)
	descBytesSent = prometheus.NewDesc("eventgen_bytes_sent_total",
		"Raw event bytes handed over to output plugins.", nil, nil)
	descIntervalsSinceFlush = prometheus.NewDesc("eventgen_intervals_since_flush",
		"Generation intervals of a sample since the process start.", []string{"sample"}, nil)
)

// Collector exposes a counter set to prometheus.
type Collector struct {
	set *CounterSet
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(set *CounterSet) *Collector {
	return &Collector{set: set}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descGeneratorQueueSize
	ch <- descOutputQueueSize
	ch <- descEventsSent
	ch <- descBytesSent
	ch <- descIntervalsSinceFlush
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, value := range c.set.GetAll() {
		v := float64(value)
		switch name {
		case GeneratorQueueSize:
			ch <- prometheus.MustNewConstMetric(descGeneratorQueueSize, prometheus.GaugeValue, v)
		case OutputQueueSize:
			ch <- prometheus.MustNewConstMetric(descOutputQueueSize, prometheus.GaugeValue, v)
		case EventsSent:
			ch <- prometheus.MustNewConstMetric(descEventsSent, prometheus.CounterValue, v)
		case BytesSent:
			ch <- prometheus.MustNewConstMetric(descBytesSent, prometheus.CounterValue, v)
		default:
			if sample, ok := SampleOf(name); ok {
				ch <- prometheus.MustNewConstMetric(descIntervalsSinceFlush, prometheus.GaugeValue, v, sample)
			}
		}
	}
}

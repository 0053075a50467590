package metrics

import (
	"context"
	"strconv"
	"time"

	graphite "github.com/marpaia/graphite-golang"
	log "github.com/sirupsen/logrus"
)

// Sender ships a batch of graphite metrics.
type Sender interface {
	SendMetrics([]graphite.Metric) error
}

// GraphiteReporter periodically pushes every counter of a set to graphite.
type GraphiteReporter struct {
	set       *CounterSet
	sender    Sender
	namespace string
	interval  time.Duration
}

func NewGraphiteReporter(set *CounterSet, host string, port int, namespace string, interval time.Duration) (*GraphiteReporter, error) {
	grph, err := graphite.NewGraphite(host, port)
	if err != nil {
		return nil, err
	}
	return newGraphiteReporter(set, grph, namespace, interval), nil
}

func newGraphiteReporter(set *CounterSet, sender Sender, namespace string, interval time.Duration) *GraphiteReporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &GraphiteReporter{
		set:       set,
		sender:    sender,
		namespace: namespace,
		interval:  interval,
	}
}

// Run sends metrics every interval until ctx is cancelled.
func (gr *GraphiteReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(gr.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := gr.sendMetrics(); err != nil {
				log.Warnf("Metrics module failed to send metrics: %s", err)
			}
		}
	}
}

func (gr *GraphiteReporter) sendMetrics() error {
	metrics := make([]graphite.Metric, 0)
	now := time.Now().Unix()
	for name, value := range gr.set.GetAll() {
		key := name
		if len(gr.namespace) > 0 {
			key = gr.namespace + "." + name
		}
		metrics = append(metrics, graphite.NewMetric(key, strconv.FormatInt(value, 10), now))
	}
	if len(metrics) == 0 {
		return nil
	}
	log.Debug("Sending graphite metrics now")
	return gr.sender.SendMetrics(metrics)
}

package worker

import (
	"github.com/awesome-flow/eventgen/pkg/metrics"
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// dispatcher hands a batch over to the output bound to its sample and keeps
// the delivery counters. Per-sample interval counters belong to the
// generator side and are never touched here.
type dispatcher struct {
	registry *plugin.Registry
	counters *metrics.CounterSet
	recorder *metrics.Recorder
}

func (d *dispatcher) dispatch(item *types.Item) error {
	events, bytes := item.Size()
	d.counters.GetCounter(metrics.EventsSent).Add(int64(events))
	d.counters.GetCounter(metrics.BytesSent).Add(int64(bytes))
	if d.recorder != nil && events > 0 {
		d.recorder.Record(item.Plugin, events, bytes)
	}
	out, err := d.registry.LookupOutput(item.Plugin)
	if err != nil {
		return &FlushError{Sample: item.Plugin, Err: err}
	}
	if err := out.Flush(item.Batch); err != nil {
		return &FlushError{Sample: item.Plugin, Err: err}
	}
	return nil
}

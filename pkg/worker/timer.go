package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/queue"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// DefaultRater serves samples with no rater setting.
const DefaultRater = "config"

// SampleTimer requests a generation of its sample every interval seconds.
// A zero interval requests a single generation.
type SampleTimer struct {
	sample *sample.Sample
	rater  plugin.Rater
	queue  queue.Queue
	logger *log.Entry
}

var _ types.Runner = (*SampleTimer)(nil)

func NewSampleTimer(s *sample.Sample, registry *plugin.Registry, q queue.Queue) (*SampleTimer, error) {
	name := s.Rater()
	if len(name) == 0 {
		name = DefaultRater
	}
	rater, err := registry.LookupRater(name)
	if err != nil {
		return nil, err
	}
	return &SampleTimer{
		sample: s,
		rater:  rater,
		queue:  q,
		logger: log.WithFields(log.Fields{"module": "timer", "sample": s.Name}),
	}, nil
}

func (t *SampleTimer) request(ctx context.Context) error {
	return t.queue.Push(ctx, &types.Item{
		Plugin: t.sample.Name,
		Count:  t.rater.Rate(t.sample),
	})
}

func (t *SampleTimer) Run(ctx context.Context) error {
	if err := t.request(ctx); err != nil {
		return ignoreCancel(ctx, err)
	}
	interval := t.sample.Interval()
	if interval <= 0 {
		t.logger.Debug("Single generation requested")
		return nil
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := t.request(ctx); err != nil {
				return ignoreCancel(ctx, err)
			}
		}
	}
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

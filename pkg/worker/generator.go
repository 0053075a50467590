package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/metrics"
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/queue"
	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// DefaultGenerator serves samples with no generator setting.
const DefaultGenerator = "default"

// GeneratorWorker turns generation requests into output batches. With an
// output queue the batches are pushed to it, otherwise they are flushed
// directly.
type GeneratorWorker struct {
	ID         string
	PopTimeout time.Duration

	config   *resolver.Config
	registry *plugin.Registry
	counters *metrics.CounterSet
	queue    queue.Queue
	depth    metrics.Counter
	output   queue.Queue
	direct   *dispatcher
	logger   *log.Entry
}

var _ types.Runner = (*GeneratorWorker)(nil)

// NewGeneratorWorker creates a worker consuming q. output is nil if batches
// bypass the output queue.
func NewGeneratorWorker(index int, config *resolver.Config, q, output queue.Queue,
	registry *plugin.Registry, counters *metrics.CounterSet, recorder *metrics.Recorder) *GeneratorWorker {
	id := uuid.New().String()
	w := &GeneratorWorker{
		ID:         id,
		PopTimeout: DefaultPopTimeout,
		config:     config,
		registry:   registry,
		counters:   counters,
		queue:      q,
		depth:      counters.GetCounter(metrics.GeneratorQueueSize),
		output:     output,
		logger: log.WithFields(log.Fields{
			"module": fmt.Sprintf("generatorworker-%d", index),
			"worker": id,
		}),
	}
	if output == nil {
		w.direct = &dispatcher{registry: registry, counters: counters, recorder: recorder}
	}
	return w
}

func (w *GeneratorWorker) Run(ctx context.Context) error {
	w.logger.Debug("Started")
	defer w.logger.Debug("Stopped")
	if err := queue.Prepare(w.queue); err != nil {
		return err
	}
	for ctx.Err() == nil {
		item, err := w.queue.Pop(w.PopTimeout)
		if err == queue.ErrEmpty {
			continue
		}
		if err != nil {
			return err
		}
		w.depth.Dec()
		if err := w.generate(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (w *GeneratorWorker) generate(ctx context.Context, work *types.Item) error {
	logger := w.logger.WithField("sample", work.Plugin)
	s, ok := w.config.Sample(work.Plugin)
	if !ok {
		logger.Warn("Generation requested for an unknown sample")
		return nil
	}
	name := s.Generator()
	if len(name) == 0 {
		name = DefaultGenerator
	}
	gen, err := w.registry.LookupGenerator(name)
	if err != nil {
		logger.Warnf("No generator %q: %s", name, err)
		return nil
	}
	batch, err := gen.Generate(s, work.Count)
	if err != nil {
		logger.Warnf("Generator %q failed: %s", name, err)
		return nil
	}
	w.counters.GetCounter(metrics.IntervalsSinceFlush(s.Name)).Inc()
	if len(batch) == 0 {
		return nil
	}
	item := &types.Item{Plugin: s.Name, Batch: batch}
	if w.direct != nil {
		return w.direct.dispatch(item)
	}
	return w.output.Push(ctx, item)
}

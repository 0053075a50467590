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
	"github.com/awesome-flow/eventgen/pkg/types"
)

// DefaultPopTimeout bounds a single dequeue. The stop condition is checked
// once per wake up.
const DefaultPopTimeout = time.Second

// OutputWorker drains the output queue into the output plugins.
type OutputWorker struct {
	ID         string
	PopTimeout time.Duration

	queue queue.Queue
	depth metrics.Counter
	*dispatcher
	logger *log.Entry
}

var _ types.Runner = (*OutputWorker)(nil)

func NewOutputWorker(index int, q queue.Queue, registry *plugin.Registry,
	counters *metrics.CounterSet, recorder *metrics.Recorder) *OutputWorker {
	id := uuid.New().String()
	return &OutputWorker{
		ID:         id,
		PopTimeout: DefaultPopTimeout,
		queue:      q,
		depth:      counters.GetCounter(metrics.OutputQueueSize),
		dispatcher: &dispatcher{
			registry: registry,
			counters: counters,
			recorder: recorder,
		},
		logger: log.WithFields(log.Fields{
			"module": fmt.Sprintf("outputworker-%d", index),
			"worker": id,
		}),
	}
}

// Run processes output items until ctx is cancelled or a flush fails. An
// item taken off the queue is always flushed, even if ctx was cancelled
// meanwhile.
func (w *OutputWorker) Run(ctx context.Context) error {
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
		if err := w.dispatch(item); err != nil {
			w.logger.WithField("sample", item.Plugin).Errorf("%s", err)
			return err
		}
	}
	return nil
}

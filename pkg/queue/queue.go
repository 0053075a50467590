package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/awesome-flow/eventgen/pkg/metrics"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Queue names used by the dispatch pipeline.
const (
	GeneratorQueue = "generator"
	OutputQueue    = "output"
)

var (
	// ErrEmpty is returned by Pop when nothing arrived within the timeout.
	// It is a normal condition, not a failure.
	ErrEmpty = errors.New("queue is empty")
	// ErrStopped is returned by a transport that has been stopped.
	ErrStopped = errors.New("transport is stopped")
)

// Queue is a FIFO of work items shared by producers and consumers.
type Queue interface {
	// Push blocks while the queue is full and ctx is alive.
	Push(ctx context.Context, item *types.Item) error
	// Pop blocks for at most timeout and returns ErrEmpty if no item
	// arrived in time.
	Pop(timeout time.Duration) (*types.Item, error)
}

// Subscriber is implemented by queues that need to register as a consumer
// before items published to them are delivered.
type Subscriber interface {
	Subscribe() error
}

// Transport provides the named queues of the pipeline.
type Transport interface {
	// Start brings up the forwarding stages of the named queues. Only the
	// process owning the pipeline starts a transport.
	Start(names ...string) error
	// Open returns a handle on the named queue.
	Open(name string) (Queue, error)
	// Stop tears the transport down.
	Stop() error
}

// Prepare registers q as a consumer if the queue needs it.
func Prepare(q Queue) error {
	if sub, ok := q.(Subscriber); ok {
		return sub.Subscribe()
	}
	return nil
}

// Counted is a queue paired with its live depth counter. Push increments the
// counter; consumers decrement it on receipt.
type Counted struct {
	Queue
	Depth metrics.Counter
}

func NewCounted(q Queue, depth metrics.Counter) *Counted {
	return &Counted{Queue: q, Depth: depth}
}

func (c *Counted) Push(ctx context.Context, item *types.Item) error {
	c.Depth.Inc()
	if err := c.Queue.Push(ctx, item); err != nil {
		c.Depth.Dec()
		return err
	}
	return nil
}

func encode(item *types.Item) ([]byte, error) {
	return json.Marshal(item)
}

func decode(data []byte) (*types.Item, error) {
	item := &types.Item{}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, err
	}
	return item, nil
}

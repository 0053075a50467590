package queue

import (
	"context"
	"sync"
	"time"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// DefaultCapacity bounds in-process queues when no capacity is configured.
const DefaultCapacity = 10000

// MemQueue is a bounded in-process FIFO.
type MemQueue struct {
	ch chan *types.Item
}

var _ Queue = (*MemQueue)(nil)

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemQueue{ch: make(chan *types.Item, capacity)}
}

func (q *MemQueue) Push(ctx context.Context, item *types.Item) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemQueue) Pop(timeout time.Duration) (*types.Item, error) {
	select {
	case item := <-q.ch:
		return item, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case item := <-q.ch:
		return item, nil
	case <-timer.C:
		return nil, ErrEmpty
	}
}

func (q *MemQueue) Len() int {
	return len(q.ch)
}

// InProcess is the transport of the thread model: every Open of a name
// returns the same bounded queue.
type InProcess struct {
	capacity map[string]int
	queues   map[string]*MemQueue
	lock     sync.Mutex
}

var _ Transport = (*InProcess)(nil)

// NewInProcess creates a transport. capacity maps queue names to their
// bounds; unlisted queues get DefaultCapacity.
func NewInProcess(capacity map[string]int) *InProcess {
	return &InProcess{
		capacity: capacity,
		queues:   make(map[string]*MemQueue),
	}
}

func (t *InProcess) Start(...string) error {
	return nil
}

func (t *InProcess) Open(name string) (Queue, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	q, ok := t.queues[name]
	if !ok {
		q = NewMemQueue(t.capacity[name])
		t.queues[name] = q
	}
	return q, nil
}

func (t *InProcess) Stop() error {
	return nil
}

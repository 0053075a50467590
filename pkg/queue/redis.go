package queue

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// Redis moves items through Redis lists. Producers push to the head of
// "<base>:<name>:in", two forwarding stages move items tail to head into
// "<base>:<name>:hop" and then "<base>:<name>:out", consumers pop the tail
// of the out list. Items survive the absence of consumers.
type Redis struct {
	client      *redis.Client
	base        string
	PollBackoff time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	lock   sync.Mutex
	logger *log.Entry
}

var _ Transport = (*Redis)(nil)

func NewRedis(client *redis.Client, base string) *Redis {
	return &Redis{
		client:      client,
		base:        base,
		PollBackoff: DefaultPollBackoff,
		logger:      log.WithField("module", "redis"),
	}
}

func (t *Redis) key(name, hop string) string {
	return t.base + ":" + name + ":" + hop
}

func (t *Redis) Start(names ...string) error {
	if err := t.client.Ping().Err(); err != nil {
		return errors.Wrap(err, "redis is not reachable")
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	for _, name := range names {
		for _, stage := range [][2]string{
			{t.key(name, "in"), t.key(name, "hop")},
			{t.key(name, "hop"), t.key(name, "out")},
		} {
			t.wg.Add(1)
			go t.relay(ctx, stage[0], stage[1])
		}
	}
	return nil
}

func (t *Redis) relay(ctx context.Context, from, to string) {
	defer t.wg.Done()
	for ctx.Err() == nil {
		err := t.client.RPopLPush(from, to).Err()
		if err == nil {
			continue
		}
		if err != redis.Nil {
			t.logger.Warnf("Failed to relay from %s to %s: %s", from, to, err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(t.PollBackoff):
		}
	}
}

func (t *Redis) Open(name string) (Queue, error) {
	return &redisQueue{transport: t, name: name}, nil
}

// Stop terminates the relay stages. The client is owned by the caller.
func (t *Redis) Stop() error {
	t.lock.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.lock.Unlock()
	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
	return nil
}

type redisQueue struct {
	transport *Redis
	name      string
}

func (q *redisQueue) Push(ctx context.Context, item *types.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(item)
	if err != nil {
		return err
	}
	return q.transport.client.LPush(q.transport.key(q.name, "in"), data).Err()
}

func (q *redisQueue) Pop(timeout time.Duration) (*types.Item, error) {
	deadline := time.Now().Add(timeout)
	key := q.transport.key(q.name, "out")
	for {
		data, err := q.transport.client.RPop(key).Bytes()
		if err == nil {
			return decode(data)
		}
		if err != redis.Nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrEmpty
		}
		if remaining > q.transport.PollBackoff {
			remaining = q.transport.PollBackoff
		}
		time.Sleep(remaining)
	}
}

package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/types"
)

const (
	// DefaultPollBackoff is the pause of a broker consumer finding its
	// queue empty.
	DefaultPollBackoff = 100 * time.Millisecond

	natsPollWait = 5 * time.Millisecond
)

// NATS moves items over a NATS server. Every queue has three subjects:
// producers publish to "<base>.<name>.in", a first forwarding stage relays
// to "<base>.<name>.hop", a second one to "<base>.<name>.out" where the
// consumers of a queue group pick items up. Delivery is at most once: items
// published while a stage or no consumer is subscribed are dropped.
type NATS struct {
	url         string
	base        string
	PollBackoff time.Duration

	conn   *nats.Conn
	relays []*nats.Subscription
	lock   sync.Mutex
	logger *log.Entry
}

var _ Transport = (*NATS)(nil)

func NewNATS(url, base string) *NATS {
	return &NATS{
		url:         url,
		base:        base,
		PollBackoff: DefaultPollBackoff,
		logger:      log.WithField("module", "nats"),
	}
}

func (t *NATS) subject(name, hop string) string {
	return t.base + "." + name + "." + hop
}

func (t *NATS) connect() (*nats.Conn, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.conn != nil {
		if t.conn.IsClosed() {
			return nil, ErrStopped
		}
		return t.conn, nil
	}
	conn, err := nats.Connect(t.url, nats.Name("eventgen-"+uuid.New().String()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", t.url)
	}
	t.conn = conn
	return conn, nil
}

func (t *NATS) Start(names ...string) error {
	conn, err := t.connect()
	if err != nil {
		return err
	}
	for _, name := range names {
		stages := [][2]string{
			{t.subject(name, "in"), t.subject(name, "hop")},
			{t.subject(name, "hop"), t.subject(name, "out")},
		}
		for _, stage := range stages {
			from, to := stage[0], stage[1]
			sub, err := conn.QueueSubscribe(from, from+".relay", func(msg *nats.Msg) {
				if err := conn.Publish(to, msg.Data); err != nil {
					t.logger.Warnf("Failed to relay from %s to %s: %s", from, to, err)
				}
			})
			if err != nil {
				return errors.Wrapf(err, "failed to start relay %s", from)
			}
			t.lock.Lock()
			t.relays = append(t.relays, sub)
			t.lock.Unlock()
		}
	}
	return conn.Flush()
}

func (t *NATS) Open(name string) (Queue, error) {
	conn, err := t.connect()
	if err != nil {
		return nil, err
	}
	return &natsQueue{
		transport: t,
		conn:      conn,
		name:      name,
	}, nil
}

// Stop drains the relay stages and closes the connection.
func (t *NATS) Stop() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	for _, sub := range t.relays {
		if err := sub.Unsubscribe(); err != nil {
			t.logger.Warnf("Failed to stop relay %s: %s", sub.Subject, err)
		}
	}
	t.relays = nil
	if t.conn != nil {
		t.conn.Close()
	}
	return nil
}

type natsQueue struct {
	transport *NATS
	conn      *nats.Conn
	name      string
	sub       *nats.Subscription
	lock      sync.Mutex
}

func (q *natsQueue) Push(ctx context.Context, item *types.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(item)
	if err != nil {
		return err
	}
	return q.conn.Publish(q.transport.subject(q.name, "in"), data)
}

func (q *natsQueue) Subscribe() error {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.sub != nil {
		return nil
	}
	out := q.transport.subject(q.name, "out")
	sub, err := q.conn.QueueSubscribeSync(out, out+".workers")
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", out)
	}
	q.sub = sub
	return q.conn.Flush()
}

func (q *natsQueue) Pop(timeout time.Duration) (*types.Item, error) {
	if err := q.Subscribe(); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for {
		msg, err := q.sub.NextMsg(natsPollWait)
		if err == nil {
			return decode(msg.Data)
		}
		if err != nats.ErrTimeout {
			if err == nats.ErrConnectionClosed || err == nats.ErrBadSubscription {
				return nil, ErrStopped
			}
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

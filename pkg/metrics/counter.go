package metrics

import (
	"strconv"
	"sync/atomic"

	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"
)

// Counter is a shared integer counter.
type Counter interface {
	Add(delta int64)
	Inc()
	Dec()
	Get() int64
}

// AtomicCounter is a Counter shared between goroutines of one process.
type AtomicCounter struct {
	v int64
}

var _ Counter = (*AtomicCounter)(nil)

func (cntr *AtomicCounter) Add(delta int64) {
	atomic.AddInt64(&cntr.v, delta)
}

func (cntr *AtomicCounter) Inc() {
	cntr.Add(1)
}

func (cntr *AtomicCounter) Dec() {
	cntr.Add(-1)
}

func (cntr *AtomicCounter) Get() int64 {
	return atomic.LoadInt64(&cntr.v)
}

// RedisCounter is a Counter shared between processes through a Redis key.
// Failures are logged and leave the counter unchanged.
type RedisCounter struct {
	client *redis.Client
	key    string
}

var _ Counter = (*RedisCounter)(nil)

func NewRedisCounter(client *redis.Client, key string) *RedisCounter {
	return &RedisCounter{client: client, key: key}
}

func (cntr *RedisCounter) Add(delta int64) {
	if err := cntr.client.IncrBy(cntr.key, delta).Err(); err != nil {
		log.Warnf("Failed to update counter %s: %s", cntr.key, err)
	}
}

func (cntr *RedisCounter) Inc() {
	cntr.Add(1)
}

func (cntr *RedisCounter) Dec() {
	cntr.Add(-1)
}

func (cntr *RedisCounter) Get() int64 {
	s, err := cntr.client.Get(cntr.key).Result()
	if err == redis.Nil {
		return 0
	}
	if err != nil {
		log.Warnf("Failed to read counter %s: %s", cntr.key, err)
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Warnf("Counter %s holds a non-integer value %q", cntr.key, s)
		return 0
	}
	return v
}

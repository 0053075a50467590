package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis"
)

// Well-known counter names.
const (
	GeneratorQueueSize = "generatorQueueSize"
	OutputQueueSize    = "outputQueueSize"
	EventsSent         = "eventsSent"
	BytesSent          = "bytesSent"

	// IntervalsSinceFlushPref prefixes the per-sample interval counters.
	IntervalsSinceFlushPref = "intervalsSinceFlush."
)

// IntervalsSinceFlush returns the name of the interval counter of a sample.
func IntervalsSinceFlush(sample string) string {
	return IntervalsSinceFlushPref + sample
}

// CounterFactory creates the counter registered under name.
type CounterFactory func(name string) Counter

func AtomicFactory(string) Counter {
	return &AtomicCounter{}
}

// RedisFactory creates counters stored under "<prefix>:<name>" keys.
func RedisFactory(client *redis.Client, prefix string) CounterFactory {
	return func(name string) Counter {
		return NewRedisCounter(client, prefix+":"+name)
	}
}

// CounterSet is a named collection of counters created on first use.
type CounterSet struct {
	counters *sync.Map
	factory  CounterFactory
	lock     sync.Mutex
}

func NewCounterSet(factory CounterFactory) *CounterSet {
	return &CounterSet{
		counters: &sync.Map{},
		factory:  factory,
	}
}

func (cs *CounterSet) GetCounter(name string) Counter {
	if cntr, ok := cs.counters.Load(name); ok {
		return cntr.(Counter)
	}
	cs.lock.Lock()
	defer cs.lock.Unlock()
	cntr, _ := cs.counters.LoadOrStore(name, cs.factory(name))
	return cntr.(Counter)
}

func (cs *CounterSet) CounterRegistered(name string) bool {
	_, ok := cs.counters.Load(name)
	return ok
}

func (cs *CounterSet) GetAll() map[string]int64 {
	res := make(map[string]int64)
	cs.counters.Range(func(k interface{}, val interface{}) bool {
		res[k.(string)] = val.(Counter).Get()
		return true
	})
	return res
}

// Names returns the sorted names of the registered counters.
func (cs *CounterSet) Names() []string {
	res := make([]string, 0)
	cs.counters.Range(func(k interface{}, _ interface{}) bool {
		res = append(res, k.(string))
		return true
	})
	sort.Strings(res)
	return res
}

// SampleOf returns the sample name of a per-sample counter.
func SampleOf(name string) (string, bool) {
	if !strings.HasPrefix(name, IntervalsSinceFlushPref) {
		return "", false
	}
	return name[len(IntervalsSinceFlushPref):], true
}

package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesome-flow/eventgen/pkg/generator"
	"github.com/awesome-flow/eventgen/pkg/metrics"
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/queue"
	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

type recordingOutput struct {
	batches [][]types.Event
	fail    error
	lock    sync.Mutex
}

func (o *recordingOutput) Flush(batch []types.Event) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.batches = append(o.batches, batch)
	return nil
}

func (o *recordingOutput) flushed() [][]types.Event {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([][]types.Event{}, o.batches...)
}

// newRegistry binds every sample to one shared recording output.
func newRegistry(t *testing.T, out *recordingOutput, samples ...*sample.Sample) *plugin.Registry {
	reg := plugin.NewRegistry(settings.NewCatalog())
	require.NoError(t, reg.Register(plugin.Descriptor{
		Kind: plugin.KindOutput,
		Name: "recording",
		NewOutput: func(*sample.Sample) (plugin.Output, error) {
			return out, nil
		},
	}))
	require.NoError(t, generator.Register(reg))
	for _, s := range samples {
		s.Set(settings.OutputMode, "recording")
		require.NoError(t, reg.Bind(s))
	}
	return reg
}

func runAsync(ctx context.Context, r types.Runner) <-chan error {
	res := make(chan error, 1)
	go func() { res <- r.Run(ctx) }()
	return res
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition was not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOutputWorker_DrainsInOrder(t *testing.T) {
	out := &recordingOutput{}
	reg := newRegistry(t, out, sample.New("p1"))
	counters := metrics.NewCounterSet(metrics.AtomicFactory)
	q := queue.NewCounted(queue.NewMemQueue(100), counters.GetCounter(metrics.OutputQueueSize))

	n := 20
	for i := 0; i < n; i++ {
		raw := fmt.Sprintf("event %02d", i)
		require.NoError(t, q.Push(context.Background(), &types.Item{
			Plugin: "p1",
			Batch:  []types.Event{types.NewRawEvent(raw)},
		}))
	}
	assert.Equal(t, int64(n), counters.GetCounter(metrics.OutputQueueSize).Get())
	counters.GetCounter(metrics.IntervalsSinceFlush("p1")).Add(3)

	w := NewOutputWorker(0, q, reg, counters, nil)
	w.PopTimeout = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	res := runAsync(ctx, w)
	waitFor(t, func() bool { return len(out.flushed()) == n })
	cancel()
	require.NoError(t, <-res)

	for ix, batch := range out.flushed() {
		assert.Equal(t, fmt.Sprintf("event %02d", ix), batch[0].Raw())
	}
	assert.Equal(t, int64(0), counters.GetCounter(metrics.OutputQueueSize).Get())
	assert.Equal(t, int64(n), counters.GetCounter(metrics.EventsSent).Get())
	assert.Equal(t, int64(n*8), counters.GetCounter(metrics.BytesSent).Get())
	assert.Equal(t, int64(3), counters.GetCounter(metrics.IntervalsSinceFlush("p1")).Get(),
		"flushing must not reset the interval counter")
}

func TestOutputWorkers_IntervalCounterIsMonotonic(t *testing.T) {
	out := &recordingOutput{}
	reg := newRegistry(t, out, sample.New("p1"))
	counters := metrics.NewCounterSet(metrics.AtomicFactory)
	intervals := counters.GetCounter(metrics.IntervalsSinceFlush("p1"))
	q := queue.NewCounted(queue.NewMemQueue(200), counters.GetCounter(metrics.OutputQueueSize))

	n := 100
	ctx, cancel := context.WithCancel(context.Background())
	results := make([]<-chan error, 0, 2)
	for ix := 0; ix < 2; ix++ {
		w := NewOutputWorker(ix, q, reg, counters, nil)
		w.PopTimeout = 10 * time.Millisecond
		results = append(results, runAsync(ctx, w))
	}
	for i := 0; i < n; i++ {
		intervals.Inc()
		require.NoError(t, q.Push(context.Background(), &types.Item{
			Plugin: "p1",
			Batch:  []types.Event{types.NewRawEvent("x")},
		}))
	}
	waitFor(t, func() bool { return len(out.flushed()) == n })
	cancel()
	for _, res := range results {
		require.NoError(t, <-res)
	}
	assert.Equal(t, int64(n), intervals.Get())
}

func TestOutputWorker_FlushFailureIsFatal(t *testing.T) {
	out := &recordingOutput{fail: errors.New("disk full")}
	reg := newRegistry(t, out, sample.New("p1"))
	counters := metrics.NewCounterSet(metrics.AtomicFactory)
	q := queue.NewMemQueue(10)
	require.NoError(t, q.Push(context.Background(), &types.Item{Plugin: "p1", Batch: []types.Event{types.NewRawEvent("x")}}))

	w := NewOutputWorker(0, q, reg, counters, nil)
	err := w.Run(context.Background())
	var flushErr *FlushError
	require.True(t, errors.As(err, &flushErr))
	assert.Equal(t, "p1", flushErr.Sample)

	require.NoError(t, q.Push(context.Background(), &types.Item{Plugin: "unbound"}))
	err = w.Run(context.Background())
	assert.True(t, errors.Is(err, plugin.ErrNotFound))
}

func TestOutputWorker_Records(t *testing.T) {
	out := &recordingOutput{}
	reg := newRegistry(t, out, sample.New("p1"))
	counters := metrics.NewCounterSet(metrics.AtomicFactory)
	buf := &bytes.Buffer{}
	q := queue.NewMemQueue(10)
	require.NoError(t, q.Push(context.Background(), &types.Item{Plugin: "p1"}))
	require.NoError(t, q.Push(context.Background(), &types.Item{
		Plugin: "p1",
		Batch:  []types.Event{types.NewRawEvent("abc"), types.NewRawEvent("de")},
	}))

	w := NewOutputWorker(0, q, reg, counters, metrics.NewRecorder(buf))
	w.PopTimeout = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	res := runAsync(ctx, w)
	waitFor(t, func() bool { return len(out.flushed()) == 2 })
	cancel()
	require.NoError(t, <-res)

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")), "only non-empty batches are recorded")
	assert.Contains(t, buf.String(), `"events":2`)
	assert.Contains(t, buf.String(), `"bytes":5`)
}

func fileSample(t *testing.T, name, body string) *sample.Sample {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	s := sample.New(name)
	s.FilePath = path
	return s
}

func TestGeneratorWorker(t *testing.T) {
	tests := []struct {
		name           string
		useOutputQueue bool
	}{
		{"through the output queue", true},
		{"direct flush", false},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			s := fileSample(t, "web.log", "a\nb\nc\n")
			out := &recordingOutput{}
			reg := newRegistry(t, out, s)
			cfg := &resolver.Config{Global: sample.NewSettings(), Samples: []*sample.Sample{s}}
			counters := metrics.NewCounterSet(metrics.AtomicFactory)

			work := queue.NewCounted(queue.NewMemQueue(10), counters.GetCounter(metrics.GeneratorQueueSize))
			var output queue.Queue
			if testCase.useOutputQueue {
				output = queue.NewMemQueue(10)
			}
			require.NoError(t, work.Push(context.Background(), &types.Item{Plugin: "web.log", Count: 2}))
			require.NoError(t, work.Push(context.Background(), &types.Item{Plugin: "unknown.log", Count: 2}))

			w := NewGeneratorWorker(0, cfg, work, output, reg, counters, nil)
			w.PopTimeout = 10 * time.Millisecond
			ctx, cancel := context.WithCancel(context.Background())
			res := runAsync(ctx, w)
			waitFor(t, func() bool { return counters.GetCounter(metrics.GeneratorQueueSize).Get() == 0 })

			var batch []types.Event
			if testCase.useOutputQueue {
				item, err := output.Pop(time.Second)
				require.NoError(t, err)
				assert.Equal(t, "web.log", item.Plugin)
				batch = item.Batch
				assert.Equal(t, int64(1), counters.GetCounter(metrics.IntervalsSinceFlush("web.log")).Get())
			} else {
				waitFor(t, func() bool { return len(out.flushed()) == 1 })
				batch = out.flushed()[0]
				assert.Equal(t, int64(1), counters.GetCounter(metrics.IntervalsSinceFlush("web.log")).Get())
				assert.Equal(t, int64(2), counters.GetCounter(metrics.EventsSent).Get())
			}
			cancel()
			require.NoError(t, <-res)
			require.Len(t, batch, 2)
			assert.Equal(t, "a", batch[0].Raw())
			assert.Equal(t, "b", batch[1].Raw())
		})
	}
}

func TestSampleTimer(t *testing.T) {
	s := sample.New("web.log")
	s.Set(settings.Count, 5)
	reg := newRegistry(t, &recordingOutput{}, s)

	q := queue.NewMemQueue(10)
	timer, err := NewSampleTimer(s, reg, q)
	require.NoError(t, err)
	require.NoError(t, timer.Run(context.Background()), "a zero interval fires once and returns")

	item, err := q.Pop(time.Second)
	require.NoError(t, err)
	assert.Equal(t, &types.Item{Plugin: "web.log", Count: 5}, item)
	_, err = q.Pop(10 * time.Millisecond)
	assert.Equal(t, queue.ErrEmpty, err)

	s.Set(settings.Interval, 3600)
	ctx, cancel := context.WithCancel(context.Background())
	res := runAsync(ctx, timer)
	_, err = q.Pop(time.Second)
	require.NoError(t, err)
	cancel()
	assert.NoError(t, <-res)

	s.Set(settings.Rater, "missing")
	_, err = NewSampleTimer(s, reg, q)
	assert.True(t, errors.Is(err, plugin.ErrNotFound))
}

func TestThreadExecutor_StopIsCooperative(t *testing.T) {
	reg := plugin.NewRegistry(settings.NewCatalog())
	iterations := make(chan int, 100)
	reg.SetRole(plugin.OutputWorker, func(ix int) (types.Runner, error) {
		return types.RunnerFunc(func(ctx context.Context) error {
			for ctx.Err() == nil {
				iterations <- ix
				time.Sleep(5 * time.Millisecond)
			}
			return nil
		}), nil
	})

	pool := NewPool()
	require.NoError(t, pool.Spawn(NewThreadExecutor(reg), plugin.OutputWorker, 2))
	assert.Equal(t, 2, pool.Len())
	seen := map[int]bool{}
	for len(seen) < 2 {
		seen[<-iterations] = true
	}
	require.NoError(t, pool.Stop())
	assert.NoError(t, pool.Wait())

	_, err := NewThreadExecutor(reg).Spawn(plugin.GeneratorWorker, 0)
	assert.True(t, errors.Is(err, plugin.ErrNotFound))
}

func TestPool_WaitReportsFailures(t *testing.T) {
	pool := NewPool()
	require.NoError(t, pool.Start(NewTask("failing", types.RunnerFunc(func(context.Context) error {
		return &FlushError{Sample: "p1", Err: errors.New("broken pipe")}
	}))))
	<-pool.Done()
	err := pool.Wait()
	var flushErr *FlushError
	assert.True(t, errors.As(err, &flushErr))
}

// TestHelperProcess is not a real test: it is the child process spawned by
// TestProcessExecutor.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("EVENTGEN_WANT_HELPER_PROCESS") != "1" {
		return
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM)
	select {
	case <-sig:
		os.Exit(0)
	case <-time.After(10 * time.Second):
		os.Exit(3)
	}
}

func TestProcessExecutor(t *testing.T) {
	os.Setenv("EVENTGEN_WANT_HELPER_PROCESS", "1")
	defer os.Unsetenv("EVENTGEN_WANT_HELPER_PROCESS")

	exec := &ProcessExecutor{
		Command: []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		Flags:   []string{"--home", "/tmp/app"},
	}
	u, err := exec.Spawn(plugin.OutputWorker, 1)
	require.NoError(t, err)
	assert.Equal(t, "OutputWorker-1", u.Name())
	proc := u.(*Process)
	assert.Equal(t, []string{os.Args[0], "-test.run=TestHelperProcess", "--",
		"worker", "OutputWorker", "--index", "1", "--home", "/tmp/app"}, proc.cmd.Args)

	require.NoError(t, u.Start())
	assert.NotZero(t, proc.Pid())
	// Give the child a moment to install its signal handler.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, u.Stop())
	assert.NoError(t, u.Wait())
	assert.NoError(t, u.Stop(), "stopping an exited process is a no-op")
}

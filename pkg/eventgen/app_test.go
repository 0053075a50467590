package eventgen

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesome-flow/eventgen/pkg/metrics"
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/queue"
	"github.com/awesome-flow/eventgen/pkg/resolver"
)

func writeFile(t *testing.T, path, body string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

// newHome lays out an app directory with one sample file and a local
// configuration appended with extra.
func newHome(t *testing.T, extra string) (Options, string) {
	home := filepath.Join(t.TempDir(), "myapp")
	out := filepath.Join(t.TempDir(), "events.log")
	writeFile(t, filepath.Join(home, "samples", "web.log"), "GET /index.html\nGET /about.html\n")
	writeFile(t, filepath.Join(home, "samples", "db.log"), "SELECT 1\n")
	writeFile(t, filepath.Join(home, "local", ConfFileName), `
[web.log]
outputMode = file
fileName = `+out+`
interval = 0
count = 0

[db.log]
outputMode = devnull
disabled = true
`+extra)
	return Options{Home: home, WorkDir: home}, out
}

func TestNew_ResolvesAndBinds(t *testing.T) {
	opts, _ := newHome(t, "")
	app, err := New(opts)
	require.NoError(t, err)
	defer app.Stop()

	cfg := app.Config()
	require.Len(t, cfg.Samples, 1)
	s := cfg.Samples[0]
	assert.Equal(t, "web.log", s.Name)
	assert.Equal(t, "myapp", s.App)
	assert.Equal(t, -1, s.Count())

	_, err = app.Registry().LookupOutput("web.log")
	assert.NoError(t, err)
	_, err = app.Registry().LookupRole(plugin.OutputWorker)
	assert.NoError(t, err)
}

func TestApp_EndToEnd(t *testing.T) {
	opts, out := newHome(t, "")
	metricsLog := filepath.Join(t.TempDir(), "metrics.log")
	opts.ConfigFile = filepath.Join(t.TempDir(), "override.yml")
	writeFile(t, opts.ConfigFile, "global:\n  metricsLog: "+metricsLog+"\n  outputWorkers: 2\n")

	app, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, app.Start())

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(out)
		if string(data) == "GET /index.html\nGET /about.html\n" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Unexpected output file contents: %q", data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, app.Stop())
	require.NoError(t, app.Wait())

	counters := app.Counters()
	assert.Equal(t, int64(2), counters.GetCounter(metrics.EventsSent).Get())
	assert.Equal(t, int64(0), counters.GetCounter(metrics.OutputQueueSize).Get())
	assert.Equal(t, int64(0), counters.GetCounter(metrics.GeneratorQueueSize).Get())

	record, err := os.ReadFile(metricsLog)
	require.NoError(t, err)
	assert.Contains(t, string(record), `"sample":"web.log"`)
}

func TestApp_LifecycleOrder(t *testing.T) {
	opts, _ := newHome(t, "")
	app, err := New(opts)
	require.NoError(t, err)
	var steps []string
	app.trace = func(step string) { steps = append(steps, step) }

	require.NoError(t, app.Start())
	require.NoError(t, app.Stop())

	assert.Equal(t, []string{"start transport", "start workers", "start timers", "start reporters"}, steps[:4])
	assert.Equal(t, []string{"stop transport", "stop timers", "stop workers", "stop reporters"}, steps[4:])
}

func TestApp_ProcessNeedsBroker(t *testing.T) {
	opts, _ := newHome(t, "\n[global]\nthreading = process\n")
	_, err := New(opts)
	var fatal *resolver.ConfigurationFatalError
	assert.True(t, errors.As(err, &fatal), "unexpected error: %v", err)
}

func TestApp_RedisPipeline(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	defer srv.Close()

	opts, out := newHome(t, "\n[global]\nqueueing = redis\nredisAddr = "+srv.Addr()+"\n")
	app, err := New(opts)
	require.NoError(t, err)
	_, ok := app.transport.(*queue.Redis)
	require.True(t, ok)
	require.NoError(t, app.Start())
	defer app.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(out)
		if strings.Count(string(data), "\n") == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Unexpected output file contents: %q", data)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApp_MissingOutputIsFatal(t *testing.T) {
	opts, _ := newHome(t, "")
	// The stanza matching no file inherits a tcp output with no destination.
	writeFile(t, filepath.Join(opts.Home, "default", ConfFileName), "[global]\noutputMode = tcp\n")
	f, err := os.OpenFile(filepath.Join(opts.Home, "local", ConfFileName), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("\n[nothing.*]\ncount = 1\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = New(opts)
	var fatal *resolver.ConfigurationFatalError
	assert.True(t, errors.As(err, &fatal), "unexpected error: %v", err)
}

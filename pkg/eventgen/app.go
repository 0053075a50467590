package eventgen

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/metrics"
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/queue"
	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
	"github.com/awesome-flow/eventgen/pkg/util"
	"github.com/awesome-flow/eventgen/pkg/util/data"
	"github.com/awesome-flow/eventgen/pkg/worker"
)

const (
	DefaultRedisAddr         = "127.0.0.1:6379"
	DefaultOutputCapacity    = 100
	DefaultGeneratorCapacity = 10000
	CountersPrefix           = "eventgen:counters"
)

// App is one eventgen process: the resolved configuration, the bound
// plugins and the dispatch pipeline.
type App struct {
	opts     Options
	catalog  *settings.Catalog
	registry *plugin.Registry
	config   *resolver.Config

	counters  *metrics.CounterSet
	transport queue.Transport
	redis     *redis.Client
	recorder  *metrics.Recorder
	metricsF  *os.File
	executor  worker.Executor

	timers    *worker.Pool
	workers   *worker.Pool
	reporters *worker.Pool

	// trace is notified of every lifecycle step.
	trace  func(step string)
	logger *log.Entry
}

// New resolves the configuration and binds every sample to its output. The
// app is ready to Start or to run a single worker.
func New(opts Options) (*App, error) {
	catalog, registry, err := NewPlugins(opts.PluginDir)
	if err != nil {
		return nil, err
	}
	cfg, err := Load(opts, catalog)
	if err != nil {
		return nil, err
	}
	logger := log.WithField("module", "eventgen")
	if cfg.Report != nil {
		logger.Warnf("Configuration resolved with errors: %s", cfg.Report)
	}
	for _, s := range cfg.Samples {
		if err := registry.Bind(s); err != nil {
			return nil, err
		}
	}
	app := &App{
		opts:      opts,
		catalog:   catalog,
		registry:  registry,
		config:    cfg,
		timers:    worker.NewPool(),
		workers:   worker.NewPool(),
		reporters: worker.NewPool(),
		trace:     func(string) {},
		logger:    logger,
	}
	if err := app.setupPipeline(); err != nil {
		return nil, err
	}
	return app, nil
}

func (app *App) Config() *resolver.Config {
	return app.config
}

func (app *App) Counters() *metrics.CounterSet {
	return app.counters
}

func (app *App) Registry() *plugin.Registry {
	return app.registry
}

func (app *App) global() *sample.Settings {
	return app.config.Global
}

func (app *App) redisClient() *redis.Client {
	if app.redis == nil {
		app.redis = redis.NewClient(&redis.Options{
			Addr: app.global().StrOr(settings.RedisAddr, DefaultRedisAddr),
		})
	}
	return app.redis
}

// setupPipeline picks the transport, the counters and the executor the
// global settings ask for.
func (app *App) setupPipeline() error {
	global := app.global()
	threading := global.StrOr(settings.Threading, settings.ThreadingThread)
	queueing := global.StrOr(settings.Queueing, settings.QueueingInProcess)
	base := global.StrOr(settings.QueueBaseName, "eventgen")

	if threading == settings.ThreadingProcess && queueing == settings.QueueingInProcess {
		return &resolver.ConfigurationFatalError{
			Reason: "threading=process needs a broker queueing (nats or redis)",
		}
	}

	switch queueing {
	case settings.QueueingNATS:
		app.transport = queue.NewNATS(global.StrOr(settings.NatsURL, nats.DefaultURL), base)
	case settings.QueueingRedis:
		app.transport = queue.NewRedis(app.redisClient(), base)
	default:
		capacity := map[string]int{
			queue.OutputQueue:    DefaultOutputCapacity,
			queue.GeneratorQueue: DefaultGeneratorCapacity,
		}
		if max := global.IntOr(settings.MaxQueueLength, 0); max > 0 {
			capacity[queue.OutputQueue] = max
			capacity[queue.GeneratorQueue] = max
		}
		app.transport = queue.NewInProcess(capacity)
	}

	if threading == settings.ThreadingProcess {
		app.counters = metrics.NewCounterSet(metrics.RedisFactory(app.redisClient(), CountersPrefix+":"+base))
	} else {
		app.counters = metrics.NewCounterSet(metrics.AtomicFactory)
	}

	if path := global.Str(settings.MetricsLog); len(path) > 0 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return &resolver.ConfigurationFatalError{Reason: "failed to open the metrics log", Err: err}
		}
		app.metricsF = f
		app.recorder = metrics.NewRecorder(f)
	}

	app.registry.SetRole(plugin.OutputWorker, app.newOutputWorker)
	app.registry.SetRole(plugin.GeneratorWorker, app.newGeneratorWorker)

	if threading == settings.ThreadingProcess {
		exec, err := worker.NewProcessExecutor(app.childFlags())
		if err != nil {
			return err
		}
		app.executor = exec
	} else {
		app.executor = worker.NewThreadExecutor(app.registry)
	}
	return nil
}

func (app *App) childFlags() []string {
	flags := []string{"--home", app.opts.Home}
	if len(app.opts.ConfigFile) > 0 {
		flags = append(flags, "--config", app.opts.ConfigFile)
	}
	if app.opts.Embedded {
		flags = append(flags, "--embedded", "--remote-url", app.opts.RemoteURL, "--apps-root", app.opts.AppsRoot)
	}
	if len(app.opts.PluginDir) > 0 {
		flags = append(flags, "--plugin-dir", app.opts.PluginDir)
	}
	return flags
}

func (app *App) useOutputQueue() bool {
	if !app.global().IsSet(settings.UseOutputQueue) {
		return true
	}
	return app.global().Bool(settings.UseOutputQueue)
}

// consumer opens a queue and registers it as a consumer right away, so
// nothing pushed after the worker is built is missed.
func (app *App) consumer(name string) (queue.Queue, error) {
	q, err := app.transport.Open(name)
	if err != nil {
		return nil, err
	}
	if err := queue.Prepare(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (app *App) producer(name, depth string) (queue.Queue, error) {
	q, err := app.transport.Open(name)
	if err != nil {
		return nil, err
	}
	return queue.NewCounted(q, app.counters.GetCounter(depth)), nil
}

func (app *App) newOutputWorker(index int) (types.Runner, error) {
	q, err := app.consumer(queue.OutputQueue)
	if err != nil {
		return nil, err
	}
	return worker.NewOutputWorker(index, q, app.registry, app.counters, app.recorder), nil
}

func (app *App) newGeneratorWorker(index int) (types.Runner, error) {
	q, err := app.consumer(queue.GeneratorQueue)
	if err != nil {
		return nil, err
	}
	var out queue.Queue
	if app.useOutputQueue() {
		if out, err = app.producer(queue.OutputQueue, metrics.OutputQueueSize); err != nil {
			return nil, err
		}
	}
	return worker.NewGeneratorWorker(index, app.config, q, out, app.registry, app.counters, app.recorder), nil
}

// Lifecycle steps, started in dependency order and stopped in reverse
// dependency order with the transport first.
const (
	StepTransport = "transport"
	StepWorkers   = "workers"
	StepTimers    = "timers"
	StepReporters = "reporters"
)

func (app *App) startOrder() ([]string, error) {
	top := data.NewTopology(StepTransport, StepWorkers, StepTimers, StepReporters)
	for _, edge := range [][2]string{
		{StepWorkers, StepTransport},
		{StepTimers, StepWorkers},
		{StepReporters, StepTransport},
	} {
		if err := top.Connect(edge[0], edge[1]); err != nil {
			return nil, err
		}
	}
	nodes, err := top.Sort()
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(nodes))
	for _, node := range nodes {
		res = append(res, node.(string))
	}
	return res, nil
}

// Start brings the pipeline up: transport, workers, sample timers and
// finally reporters. If a step fails the steps started before it are
// stopped again.
func (app *App) Start() error {
	order, err := app.startOrder()
	if err != nil {
		return err
	}
	starts := map[string]util.Failer{
		StepTransport: app.startTransport,
		StepWorkers:   app.startWorkers,
		StepTimers:    app.startTimers,
		StepReporters: app.startReporters,
	}
	stops := map[string]util.Failer{
		StepTransport: app.transport.Stop,
		StepWorkers:   app.workers.Stop,
		StepTimers:    app.timers.Stop,
		StepReporters: app.reporters.Stop,
	}
	steps := make([]util.Step, 0, len(order))
	for _, name := range order {
		name := name
		steps = append(steps, util.Step{
			Do: func() error {
				app.trace("start " + name)
				if err := starts[name](); err != nil {
					return fmt.Errorf("failed to start %s: %s", name, err)
				}
				return nil
			},
			Undo: func() error {
				app.trace("stop " + name)
				return stops[name]()
			},
		})
	}
	return util.ExecEnsure(steps...)
}

func (app *App) startTransport() error {
	return app.transport.Start(queue.GeneratorQueue, queue.OutputQueue)
}

func (app *App) startWorkers() error {
	global := app.global()
	if app.useOutputQueue() {
		if err := app.workers.Spawn(app.executor, plugin.OutputWorker, global.IntOr(settings.OutputWorkers, 1)); err != nil {
			return err
		}
	}
	return app.workers.Spawn(app.executor, plugin.GeneratorWorker, global.IntOr(settings.GeneratorWorkers, 1))
}

func (app *App) startTimers() error {
	q, err := app.producer(queue.GeneratorQueue, metrics.GeneratorQueueSize)
	if err != nil {
		return err
	}
	for _, s := range app.config.Samples {
		if len(s.FilePath) == 0 {
			app.logger.WithField("sample", s.Name).Info("No sample file matched, not scheduled")
			continue
		}
		timer, err := worker.NewSampleTimer(s, app.registry, q)
		if err != nil {
			return fmt.Errorf("sample %q: %s", s.Name, err)
		}
		if err := app.timers.Start(worker.NewTask("timer-"+s.Name, timer)); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) startReporters() error {
	global := app.global()
	host := global.Str(settings.GraphiteHost)
	if len(host) == 0 {
		return nil
	}
	hostname, _ := os.Hostname()
	reporter, err := metrics.NewGraphiteReporter(
		app.counters,
		host,
		global.IntOr(settings.GraphitePort, 2003),
		global.StrOr(settings.GraphitePrefix, "eventgen."+hostname),
		time.Duration(global.IntOr(settings.GraphiteInterval, 10))*time.Second,
	)
	if err != nil {
		return err
	}
	return app.reporters.Start(worker.NewTask("graphite", reporter))
}

// Stop tears the broker transport down, then asks timers, workers and
// reporters to stop. Queues are not drained and units are not waited for.
func (app *App) Stop() error {
	var res *multierror.Error
	for _, step := range []struct {
		name string
		stop func() error
	}{
		{StepTransport, app.transport.Stop},
		{StepTimers, app.timers.Stop},
		{StepWorkers, app.workers.Stop},
		{StepReporters, app.reporters.Stop},
	} {
		app.trace("stop " + step.name)
		if err := step.stop(); err != nil {
			res = multierror.Append(res, fmt.Errorf("failed to stop %s: %s", step.name, err))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			res = multierror.Append(res, err)
		}
	}
	if app.metricsF != nil {
		app.metricsF.Close()
	}
	return res.ErrorOrNil()
}

// Done is closed once any worker has returned. Workers only return early on
// a fatal error.
func (app *App) Done() <-chan struct{} {
	return app.workers.Done()
}

// Wait blocks until every worker has returned and reports their failures.
func (app *App) Wait() error {
	return app.workers.Wait()
}

// RunWorker runs a single worker of role in the current process until ctx
// is cancelled. It is the entry point of worker child processes.
func (app *App) RunWorker(ctx context.Context, role plugin.Role, index int) error {
	factory, err := app.registry.LookupRole(role)
	if err != nil {
		return err
	}
	runner, err := factory(index)
	if err != nil {
		return err
	}
	defer func() {
		app.transport.Stop()
		if app.redis != nil {
			app.redis.Close()
		}
	}()
	return runner.Run(ctx)
}

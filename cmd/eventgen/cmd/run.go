package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/awesome-flow/eventgen/pkg/config"
	"github.com/awesome-flow/eventgen/pkg/eventgen"
	"github.com/awesome-flow/eventgen/pkg/metrics"
)

var (
	metricsAddr string
	watch       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolves the configuration and runs the dispatch pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Infof("Starting %s, process ID: %d", ProgramName, os.Getpid())

		var changes <-chan string
		if watch && !opts.Embedded {
			watcher, err := config.NewWatcher(eventgen.ConfigFiles(opts)...)
			if err != nil {
				log.Errorf("⚠️ Failed to watch the configuration: %s", err)
			} else {
				defer watcher.Close()
				changes = watcher.Changes()
			}
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		var server *http.Server
		defer func() {
			if server != nil {
				server.Close()
			}
		}()

		for {
			app, err := startApp()
			if err != nil {
				return err
			}
			if len(metricsAddr) > 0 && server == nil {
				server = serveMetrics(app.Counters())
			}

			select {
			case sig := <-sigs:
				log.Infof("Received %s, terminating", sig)
				return stopApp(app)
			case <-app.Done():
				stopApp(app)
				return app.Wait()
			case path := <-changes:
				log.Infof("Configuration file %s changed, reloading", path)
				if err := stopApp(app); err != nil {
					return err
				}
				app.Wait()
				if server != nil {
					server.Close()
					server = nil
				}
			}
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to expose prometheus metrics on")
	runCmd.Flags().BoolVar(&watch, "watch", false, "reload when a configuration file changes")
}

func startApp() (*eventgen.App, error) {
	log.Infof("Resolving the configuration of %s", opts.Home)
	app, err := eventgen.New(opts)
	if err != nil {
		return nil, err
	}
	setLogLevel(app.Config())
	log.Infof("✅ Resolved %d samples", len(app.Config().Samples))

	log.Info("Starting the pipeline")
	if err := app.Start(); err != nil {
		stopApp(app)
		return nil, err
	}
	log.Info("✅ Pipeline is started")
	return app, nil
}

func stopApp(app *eventgen.App) error {
	log.Info("Stopping the pipeline")
	if err := app.Stop(); err != nil {
		log.Errorf("⚠️ Error while stopping the pipeline: %s", err)
		return err
	}
	log.Info("✅ Done")
	return nil
}

func serveMetrics(counters *metrics.CounterSet) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(counters))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		log.Infof("Serving metrics on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("⚠️ Metrics server failed: %s", err)
		}
	}()
	return server
}

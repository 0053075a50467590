package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/awesome-flow/eventgen/pkg/eventgen"
	"github.com/awesome-flow/eventgen/pkg/plugin"
)

var workerIndex int

var workerCmd = &cobra.Command{
	Use:    "worker [OutputWorker|GeneratorWorker]",
	Short:  "Runs a single pipeline worker, used by threading=process",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := plugin.Role(args[0])
		if role != plugin.OutputWorker && role != plugin.GeneratorWorker {
			return fmt.Errorf("unknown worker role %q", args[0])
		}
		app, err := eventgen.New(opts)
		if err != nil {
			return err
		}
		setLogLevel(app.Config())

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		logger := log.WithField("module", fmt.Sprintf("%s-%d", role, workerIndex))
		logger.Infof("Started, process ID: %d", os.Getpid())
		if err := app.RunWorker(ctx, role, workerIndex); err != nil {
			return err
		}
		logger.Info("Stopped")
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerIndex, "index", 0, "index of the worker in its role")
}

package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/awesome-flow/eventgen/pkg/eventgen"
	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/settings"
)

const (
	ProgramName = "eventgen"

	EnvHome      = "EVENTGEN_HOME"
	EnvRemoteURL = "EVENTGEN_REMOTE_URL"
)

var opts eventgen.Options

var rootCmd = &cobra.Command{
	Use:           ProgramName + " [command]",
	Short:         "eventgen generates synthetic events from sample files",
	Long:          "eventgen resolves a stanza configuration into samples and dispatches the generated events to output plugins.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// optionFlags binds the configuration source flags shared by every command.
func optionFlags(opts *eventgen.Options) *pflag.FlagSet {
	flags := pflag.NewFlagSet("options", pflag.ContinueOnError)
	flags.StringVar(&opts.Home, "home", envOr(EnvHome, "."), "app directory holding default/, local/ and samples/")
	flags.StringVar(&opts.ConfigFile, "config", "", "extra .conf or .yml file overriding the app configuration")
	flags.BoolVar(&opts.Embedded, "embedded", false, "read stanzas from the remote catalog and samples from the apps root")
	flags.StringVar(&opts.RemoteURL, "remote-url", os.Getenv(EnvRemoteURL), "remote configuration catalog URL")
	flags.StringVar(&opts.AppsRoot, "apps-root", "", "directory holding the apps in embedded mode")
	flags.StringVar(&opts.PluginDir, "plugin-dir", "", "directory of *.so plugins")
	return flags
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(optionFlags(&opts))
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(workerCmd)
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

// setLogLevel follows the debug and verbose global settings.
func setLogLevel(cfg *resolver.Config) {
	switch {
	case cfg.Global.Bool(settings.Verbose):
		log.SetLevel(log.TraceLevel)
	case cfg.Global.Bool(settings.Debug):
		log.SetLevel(log.DebugLevel)
	}
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("❌ %s", err)
		return err
	}
	return nil
}

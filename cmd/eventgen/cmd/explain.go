package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/awesome-flow/eventgen/pkg/eventgen"
	"github.com/awesome-flow/eventgen/pkg/util/explain"
)

var explainDot bool

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Prints the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, _, err := eventgen.NewPlugins(opts.PluginDir)
		if err != nil {
			return err
		}
		cfg, err := eventgen.Load(opts, catalog)
		if err != nil {
			return err
		}
		var explainer explain.Explainer = &explain.Config{}
		if explainDot {
			explainer = &explain.Pipeline{}
		}
		out, err := explainer.Explain(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		if cfg.Report != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", cfg.Report)
		}
		return nil
	},
}

func init() {
	explainCmd.Flags().BoolVar(&explainDot, "dot", false, "print the dispatch pipeline as a GraphViz digraph")
}

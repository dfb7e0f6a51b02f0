package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dcm",
		Short: "dcm - development-mode reconciliation core",
		Long: `dcm loads a project's data models, diffs them against the observed
state of the OLAP store and BUS broker, and drives that state toward what
the models declare: topics, tables, ingestion routes, sync jobs, and the
worker processes that back them.

It runs one reconciliation pass on startup and then watches the project's
model directory, re-planning and re-applying on every change.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "moose.config.toml", "project config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newPlanCommand())

	return rootCmd
}
